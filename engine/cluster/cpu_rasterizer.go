package cluster

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// CPUTileRasterizer is a headless TileRasterizer. Instead of drawing proxy meshes it
// stamps the conservative screen rectangle of each light's bounding sphere into a
// TileBitmask. Every tile a light's proxy could cover is marked; some tiles it would
// not cover may be marked too.
type CPUTileRasterizer struct {
	tileSize uint32
	capacity int
	mask     *TileBitmask
}

var _ TileRasterizer = &CPUTileRasterizer{}

// NewCPUTileRasterizer creates a CPU rasterizer.
//
// Parameters:
//   - tileSize: tile edge in pixels (DefaultTileSize when 0)
//   - capacity: the maximum number of lights per type (sizes the bitmask)
//
// Returns:
//   - *CPUTileRasterizer: the new rasterizer
func NewCPUTileRasterizer(tileSize uint32, capacity int) *CPUTileRasterizer {
	return &CPUTileRasterizer{
		tileSize: common.Coalesce(tileSize, DefaultTileSize),
		capacity: capacity,
	}
}

// Mask returns the bitmask of the most recent frame.
func (r *CPUTileRasterizer) Mask() *TileBitmask { return r.mask }

func (r *CPUTileRasterizer) BeginTiles(counts Counts) error {
	if counts.Result == nil {
		return fmt.Errorf("frame %d: counts carry no fill result", counts.Frame)
	}
	view := counts.Result.View
	grid := NewTileGrid(view.ScreenWidth, view.ScreenHeight, r.tileSize)
	if r.mask == nil {
		r.mask = NewTileBitmask(grid, r.capacity)
	}
	r.mask.Reset(grid, counts)
	return nil
}

func (r *CPUTileRasterizer) DrawProxies(kind light.LightType, instanceCount uint32, counts Counts) error {
	res := counts.Result
	indices := res.Indices(kind)
	if int(instanceCount) > len(indices) {
		return fmt.Errorf("%s draw of %d instances exceeds %d listed lights", kind, instanceCount, len(indices))
	}

	grid := r.mask.Grid()
	for i := range int(instanceCount) {
		bs := res.Spheres[indices[i]]
		x0, y0, x1, y1, ok := sphereTileRect(bs, res.View, grid)
		if !ok {
			continue
		}
		r.mask.SetRect(kind, i, x0, y0, x1, y1)
	}
	return nil
}

// sphereTileRect returns the inclusive tile rectangle covering the screen projection
// of a world-space sphere. A sphere reaching the near plane covers the whole screen.
// ok is false when the projection misses the screen.
func sphereTileRect(bs light.BoundingSphere, view common.FrameView, grid TileGrid) (x0, y0, x1, y1 uint32, ok bool) {
	c := mgl32.TransformCoordinate(bs.Center, view.View)
	depth := common.ViewDepth(c)
	r := bs.Radius

	if depth-r <= view.Near {
		return 0, 0, grid.TilesX - 1, grid.TilesY - 1, true
	}

	// Every point of the sphere has x in [cx−r, cx+r] and depth in [depth−r, depth+r],
	// so x/depth is bounded by the four corner ratios.
	nearD, farD := depth-r, depth+r
	minX := min((c[0]-r)/nearD, (c[0]-r)/farD)
	maxX := max((c[0]+r)/nearD, (c[0]+r)/farD)
	minY := min((c[1]-r)/nearD, (c[1]-r)/farD)
	maxY := max((c[1]+r)/nearD, (c[1]+r)/farD)

	sx, sy := view.Projection.At(0, 0), view.Projection.At(1, 1)
	ndcX0, ndcX1 := minX*sx, maxX*sx
	ndcY0, ndcY1 := minY*sy, maxY*sy
	if ndcX1 < -1 || ndcX0 > 1 || ndcY1 < -1 || ndcY0 > 1 {
		return 0, 0, 0, 0, false
	}

	w, h := float32(view.ScreenWidth), float32(view.ScreenHeight)
	// Screen Y grows downwards.
	px0 := int(math.Floor(float64((ndcX0*0.5 + 0.5) * w)))
	px1 := int(math.Floor(float64((ndcX1*0.5 + 0.5) * w)))
	py0 := int(math.Floor(float64((0.5 - ndcY1*0.5) * h)))
	py1 := int(math.Floor(float64((0.5 - ndcY0*0.5) * h)))

	x0, y0 = grid.TileAt(px0, py0)
	x1, y1 = grid.TileAt(px1, py1)
	return x0, y0, x1, y1, true
}
