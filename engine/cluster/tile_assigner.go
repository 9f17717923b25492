package cluster

import (
	"context"
	"fmt"

	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
)

// TileRasterizer records the proxy draws that rasterize light coverage into screen
// tiles. One instanced draw is issued per light type, with one instance per surviving
// light of that type.
type TileRasterizer interface {
	// BeginTiles prepares the rasterizer for a frame's draws.
	//
	// Parameters:
	//   - counts: the frame's per-type counts and fill data
	//
	// Returns:
	//   - error: error if the frame's resources cannot be prepared
	BeginTiles(counts Counts) error

	// DrawProxies draws instanceCount proxies for lights of the given type.
	//
	// Parameters:
	//   - kind: the light type (sphere proxy for point, cone proxy for spot)
	//   - instanceCount: the number of surviving lights of that type
	//   - counts: the frame's counts and fill data
	//
	// Returns:
	//   - error: error if the draw cannot be recorded
	DrawProxies(kind light.LightType, instanceCount uint32, counts Counts) error
}

// countsSource is anything that hands out per-frame counts.
type countsSource interface {
	WaitForCountsContext(ctx context.Context) (Counts, error)
}

// TileAssigner runs on the command-recording thread. It waits for the buffer filler
// to publish the frame's counts and then issues the per-type proxy draws.
type TileAssigner struct {
	src        countsSource
	rasterizer TileRasterizer
	logger     logging.Logger
}

// NewTileAssigner creates a TileAssigner reading counts from src.
//
// Parameters:
//   - src: the engine (or handoff) publishing the counts
//   - rasterizer: the draw backend
//   - logger: optional logger; nil discards output
//
// Returns:
//   - *TileAssigner: the new assigner
func NewTileAssigner(src countsSource, rasterizer TileRasterizer, logger logging.Logger) *TileAssigner {
	if src == nil || rasterizer == nil {
		panic("cluster: NewTileAssigner requires a counts source and a TileRasterizer")
	}
	return &TileAssigner{src: src, rasterizer: rasterizer, logger: logging.OrNop(logger)}
}

// Assign blocks until the frame's counts are published, then draws the proxies.
//
// Returns:
//   - Counts: the counts that were drawn
//   - error: ErrClosed, or a wrapped rasterizer error
func (a *TileAssigner) Assign() (Counts, error) {
	return a.AssignContext(context.Background())
}

// AssignContext is Assign with cancellation of the wait.
func (a *TileAssigner) AssignContext(ctx context.Context) (Counts, error) {
	counts, err := a.src.WaitForCountsContext(ctx)
	if err != nil {
		return Counts{}, err
	}
	if err := a.Draw(counts); err != nil {
		return counts, err
	}
	return counts, nil
}

// Draw issues the proxy draws for counts that were already consumed.
//
// Parameters:
//   - counts: the frame's counts
//
// Returns:
//   - error: a wrapped rasterizer error
func (a *TileAssigner) Draw(counts Counts) error {
	if err := a.rasterizer.BeginTiles(counts); err != nil {
		return fmt.Errorf("begin tiles for frame %d: %w", counts.Frame, err)
	}
	for k := range light.LightTypeCount {
		kind := light.LightType(k)
		n := counts.Of(kind)
		if n == 0 {
			continue
		}
		if err := a.rasterizer.DrawProxies(kind, n, counts); err != nil {
			return fmt.Errorf("draw %s proxies for frame %d: %w", kind, counts.Frame, err)
		}
	}
	a.logger.Debugf("frame %d: tile proxies drawn (point=%d spot=%d)", counts.Frame, counts.Point, counts.Spot)
	return nil
}
