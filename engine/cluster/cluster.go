// Package cluster builds the per-frame light acceleration structure: frustum
// culling, conservative depth extents, a depth-sorted light buffer, Z-bins and the
// counts handoff that drives the tile proxy draws.
package cluster

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
)

// DefaultQueueSize is the worker pool task queue length.
const DefaultQueueSize = 256

type frameRequest struct {
	frame uint64
	view  common.FrameView
}

// engineImpl implements the Engine interface.
type engineImpl struct {
	reg    light.Registry
	logger logging.Logger

	maxLights       int
	binCount        int
	workers         int
	queueSize       int
	tileSize        uint32
	minFurthestBack float32

	pool    worker.DynamicWorkerPool
	handoff *CountsHandoff
	taskSeq atomic.Int64

	cull *cullTask
	sort *sortTask
	fill *fillTask
	bin  *binTask

	state  frameState
	output FrameOutput

	begin    chan frameRequest
	done     chan *FrameOutput
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup

	inFlight atomic.Bool
	frame    atomic.Uint64
}

// Engine runs the clustering task graph once per frame on a persistent driver
// goroutine: Cull, then Sort, then Fill and Bin concurrently. Fill publishes the
// per-type counts through a CountsHandoff for the command-recording thread.
//
// The frame protocol is Begin, then (on the recording thread) WaitForCounts, then
// Wait. All buffers reachable from the returned FrameOutput and Counts stay valid
// until the next Begin. The registry is held read-only for the duration of a frame.
type Engine interface {
	// Begin starts clustering a frame. It returns immediately. Calling Begin while a
	// frame is in flight (before Wait returned it) panics.
	//
	// Parameters:
	//   - view: the camera state of the frame
	//
	// Returns:
	//   - uint64: the frame number
	//   - error: a wrapped common.ErrInvalidFrameView, or ErrClosed
	Begin(view common.FrameView) (uint64, error)

	// WaitForCounts blocks until the in-flight frame's counts are published.
	//
	// Returns:
	//   - Counts: the per-type counts and fill data
	//   - error: ErrClosed if the engine was closed first
	WaitForCounts() (Counts, error)

	// WaitForCountsContext is WaitForCounts with cancellation.
	WaitForCountsContext(ctx context.Context) (Counts, error)

	// Wait blocks until Fill and Bin of the in-flight frame are both done.
	//
	// Returns:
	//   - *FrameOutput: the frame's results
	//   - error: ErrNoFrame if nothing is in flight, ErrClosed if closed
	Wait() (*FrameOutput, error)

	// RunFrame runs Begin, consumes the counts and Waits. Use it when no separate
	// recording thread consumes the counts.
	//
	// Parameters:
	//   - view: the camera state of the frame
	//
	// Returns:
	//   - *FrameOutput: the frame's results
	//   - error: error if the frame could not run
	RunFrame(view common.FrameView) (*FrameOutput, error)

	// Handoff returns the counts handoff shared with the recording thread.
	Handoff() *CountsHandoff

	// Registry returns the light registry the engine clusters.
	Registry() light.Registry

	// Frame returns the number of the most recently started frame.
	Frame() uint64

	// BinCount returns the number of Z-bins.
	BinCount() int

	// TileSize returns the screen tile edge in pixels.
	TileSize() uint32

	// Close stops the driver goroutine and the worker pool. Safe to call more than once.
	Close()
}

var _ Engine = &engineImpl{}

// NewEngine creates a clustering Engine over reg and starts its driver goroutine.
// Every per-frame buffer is allocated here, sized to reg.MaxLights().
//
// Parameters:
//   - reg: the light registry to cluster
//   - opts: variadic list of EngineBuilderOption functions
//
// Returns:
//   - Engine: the running engine; call Close when done
func NewEngine(reg light.Registry, opts ...EngineBuilderOption) Engine {
	if reg == nil {
		panic("cluster: NewEngine requires a non-nil Registry")
	}

	e := &engineImpl{
		reg:     reg,
		handoff: NewCountsHandoff(),
		begin:   make(chan frameRequest),
		done:    make(chan *FrameOutput, 1),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger = logging.OrNop(e.logger)
	e.maxLights = reg.MaxLights()
	e.binCount = common.Coalesce(e.binCount, DefaultBinCount)
	e.workers = common.Coalesce(e.workers, runtime.NumCPU())
	e.queueSize = common.Coalesce(e.queueSize, DefaultQueueSize)
	e.tileSize = common.Coalesce(e.tileSize, DefaultTileSize)
	e.minFurthestBack = common.Coalesce(e.minFurthestBack, DefaultMinFurthestBack)
	if e.binCount < 0 || e.workers < 0 || e.queueSize < 0 || e.minFurthestBack < 0 {
		panic(fmt.Sprintf("cluster: invalid configuration (bins=%d workers=%d queue=%d minFurthestBack=%v)",
			e.binCount, e.workers, e.queueSize, e.minFurthestBack))
	}

	e.pool = worker.NewDynamicWorkerPool(e.workers, e.queueSize, 1*time.Second)
	e.state.entries = make([]CulledLightEntry, 0, common.PadToLanes(e.maxLights))
	e.cull = newCullTask(e)
	e.sort = newSortTask(e)
	e.fill = newFillTask(e)
	e.bin = newBinTask(e)

	e.wg.Add(1)
	go e.drive()

	e.logger.Debugf("engine started (maxLights=%d bins=%d workers=%d tile=%d)",
		e.maxLights, e.binCount, e.workers, e.tileSize)
	return e
}

func (e *engineImpl) Begin(view common.FrameView) (uint64, error) {
	if err := view.Validate(); err != nil {
		return 0, fmt.Errorf("begin frame: %w", err)
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		panic("cluster: Begin called while a frame is in flight")
	}
	if stale, ok := e.handoff.discard(); ok {
		e.logger.Warnf("frame %d: counts were never consumed; discarding", stale.Frame)
	}

	frame := e.frame.Add(1)
	select {
	case e.begin <- frameRequest{frame: frame, view: view}:
		return frame, nil
	case <-e.quit:
		e.inFlight.Store(false)
		return 0, ErrClosed
	}
}

func (e *engineImpl) WaitForCounts() (Counts, error) {
	return e.handoff.WaitForCounts()
}

func (e *engineImpl) WaitForCountsContext(ctx context.Context) (Counts, error) {
	return e.handoff.WaitForCountsContext(ctx)
}

func (e *engineImpl) Wait() (*FrameOutput, error) {
	if !e.inFlight.Load() {
		return nil, ErrNoFrame
	}
	select {
	case out := <-e.done:
		e.inFlight.Store(false)
		return out, nil
	case <-e.quit:
		return nil, ErrClosed
	}
}

func (e *engineImpl) RunFrame(view common.FrameView) (*FrameOutput, error) {
	if _, err := e.Begin(view); err != nil {
		return nil, err
	}
	if _, err := e.WaitForCounts(); err != nil {
		return nil, err
	}
	return e.Wait()
}

func (e *engineImpl) Handoff() *CountsHandoff  { return e.handoff }
func (e *engineImpl) Registry() light.Registry { return e.reg }
func (e *engineImpl) Frame() uint64            { return e.frame.Load() }
func (e *engineImpl) BinCount() int            { return e.binCount }
func (e *engineImpl) TileSize() uint32         { return e.tileSize }

func (e *engineImpl) Close() {
	e.quitOnce.Do(func() {
		close(e.quit)
		e.handoff.Close()
		e.wg.Wait()
		e.pool.Stop()
		e.logger.Debugf("engine closed after %d frames", e.frame.Load())
	})
}

// drive is the persistent driver goroutine. It is never a pool worker, so waiting on
// pool barriers here cannot starve the pool.
func (e *engineImpl) drive() {
	defer e.wg.Done()
	for {
		select {
		case req := <-e.begin:
			e.done <- e.runFrame(req)
		case <-e.quit:
			return
		}
	}
}

// runFrame executes Cull → Sort → {Fill, Bin} for one frame.
func (e *engineImpl) runFrame(req frameRequest) *FrameOutput {
	start := time.Now()
	st := &e.state
	st.frame = req.frame
	st.view = req.view
	st.stats = FrameStats{Frame: req.frame}
	st.regView = e.reg.Acquire()

	e.cull.run(st)
	e.sort.run(st)

	var fillDone sync.WaitGroup
	fillDone.Add(1)
	e.pool.SubmitTask(worker.Task{
		ID: int(e.taskSeq.Add(1)),
		Do: func() (any, error) {
			defer fillDone.Done()
			e.fill.run(st)
			return nil, nil
		},
	})
	e.bin.run(st)
	fillDone.Wait()

	st.regView.Release()
	st.stats.Total = time.Since(start)

	out := &e.output
	out.FillResult = st.counts.Result
	out.Bins = e.bin.bins
	out.BinWidth = st.binWidth
	out.FurthestBack = st.furthestBack
	out.Tiles = NewTileGrid(st.view.ScreenWidth, st.view.ScreenHeight, e.tileSize)
	out.Stats = st.stats
	out.Uniforms = newClusterUniforms(out)

	if e.logger.DebugEnabled() {
		e.logger.Debugf("frame %d: %d/%d lights survived (point=%d spot=%d) furthestBack=%.2f in %v",
			st.frame, st.stats.Survivors, st.stats.Lights, st.stats.Point, st.stats.Spot, st.furthestBack, st.stats.Total)
	}
	return out
}

// parallel runs fn(i) for i in [0, n) on the worker pool and waits for all of them.
// A single chunk runs inline on the caller.
func (e *engineImpl) parallel(n int, fn func(i int)) {
	if n <= 1 {
		if n == 1 {
			fn(0)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		e.pool.SubmitTask(worker.Task{
			ID: int(e.taskSeq.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				fn(i)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// chunksFor splits units of work into at most e.workers chunks of at least minPer units.
func (e *engineImpl) chunksFor(units, minPer int) int {
	return common.ClampValue(units/minPer, 1, e.workers)
}
