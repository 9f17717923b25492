package cluster

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// projectToTile maps a view-space point in front of the camera to its tile.
func projectToTile(p mgl32.Vec3, frame common.FrameView, grid TileGrid) (x, y uint32, onScreen bool) {
	depth := common.ViewDepth(p)
	ndcX := frame.Projection.At(0, 0) * p[0] / depth
	ndcY := frame.Projection.At(1, 1) * p[1] / depth
	if ndcX < -1 || ndcX > 1 || ndcY < -1 || ndcY > 1 {
		return 0, 0, false
	}
	px := int(math.Floor(float64((ndcX*0.5 + 0.5) * float32(frame.ScreenWidth))))
	py := int(math.Floor(float64((0.5 - ndcY*0.5) * float32(frame.ScreenHeight))))
	x, y = grid.TileAt(px, py)
	return x, y, true
}

func TestSphereTileRect_CoversProjection(t *testing.T) {
	frame := testFrame()
	grid := NewTileGrid(frame.ScreenWidth, frame.ScreenHeight, DefaultTileSize)
	rng := rand.New(rand.NewPCG(31, 32))

	for range 200 {
		bs := light.BoundingSphere{
			Center: mgl32.Vec3{rng.Float32()*200 - 100, rng.Float32()*120 - 60, -5 - rng.Float32()*200},
			Radius: 0.5 + rng.Float32()*10,
		}
		x0, y0, x1, y1, ok := sphereTileRect(bs, frame, grid)

		for range 64 {
			p := bs.Center.Add(randomUnit(rng).Mul(bs.Radius * rng.Float32()))
			if common.ViewDepth(p) <= frame.Near {
				continue
			}
			x, y, on := projectToTile(p, frame, grid)
			if !on {
				continue
			}
			require.True(t, ok, "sphere %+v projects on screen but was rejected", bs)
			require.True(t, x >= x0 && x <= x1 && y >= y0 && y <= y1,
				"tile (%d,%d) outside rect (%d,%d)-(%d,%d) for %+v", x, y, x0, y0, x1, y1, bs)
		}
	}
}

func TestSphereTileRect_Cases(t *testing.T) {
	frame := testFrame()
	grid := NewTileGrid(frame.ScreenWidth, frame.ScreenHeight, DefaultTileSize)

	x0, y0, x1, y1, ok := sphereTileRect(light.BoundingSphere{Radius: 2}, frame, grid)
	assert.True(t, ok)
	assert.Equal(t, [4]uint32{0, 0, grid.TilesX - 1, grid.TilesY - 1}, [4]uint32{x0, y0, x1, y1}, "camera inside sphere")

	_, _, _, _, ok = sphereTileRect(light.BoundingSphere{Center: mgl32.Vec3{-500, 0, -20}, Radius: 1}, frame, grid)
	assert.False(t, ok, "far left of the frustum")

	x0, y0, x1, y1, ok = sphereTileRect(light.BoundingSphere{Center: mgl32.Vec3{0, 0, -100}, Radius: 1}, frame, grid)
	require.True(t, ok)
	cx, cy := grid.TilesX/2, grid.TilesY/2
	assert.True(t, x0 <= cx && cx <= x1 && y0 <= cy && cy <= y1)
	assert.Less(t, x1-x0, uint32(4))
}

func TestCPUTileRasterizer_MarksPerType(t *testing.T) {
	reg := light.NewRegistry(light.WithMaxLights(8))
	reg.AddLight(light.LightTypePoint, pointOfRadius(mgl32.Vec3{-30, 0, -60}, 3)...)
	reg.AddLight(light.LightTypeSpot, append(pointOfRadius(mgl32.Vec3{30, 0, -60}, 3),
		light.WithDirection(0, -1, 0), light.WithSpotCone(10, 20))...)
	view := reg.Acquire()
	defer view.Release()

	entries := sortedSurvivors(view)
	require.Len(t, entries, 2)
	counts := newBufferFiller(8).fill(view, entries, 1)
	counts.Result.View = testFrame()

	r := NewCPUTileRasterizer(0, 8)
	a := NewTileAssigner(staticCounts{counts}, r, nil)
	_, err := a.Assign()
	require.NoError(t, err)

	m := r.Mask()
	g := m.Grid()
	leftTile := g.Index(g.TilesX/4, g.TilesY/2)
	rightTile := g.Index(3*g.TilesX/4, g.TilesY/2)

	pointTiles, spotTiles := 0, 0
	for tile := range g.Count() {
		pointTiles += len(m.Lights(light.LightTypePoint, tile))
		spotTiles += len(m.Lights(light.LightTypeSpot, tile))
	}
	assert.Positive(t, pointTiles)
	assert.Positive(t, spotTiles)
	assert.Empty(t, m.Lights(light.LightTypeSpot, leftTile))
	assert.Empty(t, m.Lights(light.LightTypePoint, rightTile))
}

func TestCPUTileRasterizer_Errors(t *testing.T) {
	r := NewCPUTileRasterizer(16, 4)
	assert.Error(t, r.BeginTiles(Counts{Frame: 2}))

	res := &FillResult{View: testFrame()}
	require.NoError(t, r.BeginTiles(Counts{Frame: 3, Result: res}))
	assert.Error(t, r.DrawProxies(light.LightTypePoint, 1, Counts{Frame: 3, Point: 1, Result: res}))
}
