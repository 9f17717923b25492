// Package engine drives the clustering pipeline headlessly: it plays the engine
// thread (camera, Begin, Wait) and the command-recording thread (tile proxy draws)
// once per frame, and offers fixed-rate tick and render loops around that.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// Default screen size used when WithScreenSize is not given.
const (
	DefaultScreenWidth  = 1280
	DefaultScreenHeight = 720
)

// recordResult is what the recording goroutine hands back for one frame.
type recordResult struct {
	counts cluster.Counts
	err    error
}

// engine implements the Engine interface.
// Coordinates the clustering engine, the recording goroutine, and the tick and render loops.
type engine struct {
	frameMu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	recordStart chan struct{}
	recordStop  chan struct{}
	recorded    chan recordResult
	recordWG    sync.WaitGroup
	closed      bool

	logger      logging.Logger
	reg         light.Registry
	cam         camera.Camera
	cluster     cluster.Engine
	clusterOpts []cluster.EngineBuilderOption
	rasterizer  cluster.TileRasterizer
	assigner    *cluster.TileAssigner
	backend     renderer.Backend
	gpu         *renderer.WGPUTileRasterizer

	width, height uint32

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32, out *cluster.FrameOutput)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the headless frame driver around a cluster.Engine.
type Engine interface {
	// Registry returns the light registry being clustered.
	Registry() light.Registry

	// Camera returns the camera frames are clustered from.
	Camera() camera.Camera

	// Cluster returns the underlying clustering engine.
	Cluster() cluster.Engine

	// Rasterizer returns the tile rasterizer the recording goroutine draws with.
	Rasterizer() cluster.TileRasterizer

	// Profiler returns the cluster profiler. Records only while profiling is enabled.
	Profiler() *profiler.Profiler

	// ScreenSize returns the screen size frames are clustered for.
	ScreenSize() (width, height uint32)

	// SetScreenSize changes the screen size. With a GPU backend the offscreen
	// target is recreated.
	//
	// Parameters:
	//   - width: the screen width in pixels
	//   - height: the screen height in pixels
	//
	// Returns:
	//   - error: error if the size is zero or the target cannot be recreated
	SetScreenSize(width, height uint32) error

	// EnableProfiler enables per-frame stage profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for light and camera updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick. Registry
	// mutations made here block while a frame holds the registry.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each clustered frame.
	//
	// Parameters:
	//   - callback: receives the delta time in seconds and the frame's output,
	//     valid until the next frame begins
	SetRenderCallback(callback func(deltaTime float32, out *cluster.FrameOutput))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frame clusters one frame. The camera is updated, the frame is begun, the
	// recording goroutine draws the tile proxies once the counts are published, and
	// Frame returns when both the clustering and the draws are done. Frame may be
	// called without Run.
	//
	// Returns:
	//   - *cluster.FrameOutput: the frame's output, valid until the next Frame
	//   - error: error if the frame could not be clustered or recorded
	Frame() (*cluster.FrameOutput, error)

	// Run starts the tick and render loops and blocks until ctx is done, Quit is
	// called or a frame fails.
	//
	// Parameters:
	//   - ctx: cancels the loops
	//
	// Returns:
	//   - error: the first frame error, nil on a clean stop
	Run(ctx context.Context) error

	// Quit signals the loops started by Run to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Close quits, stops the recording goroutine and the clustering engine, and
	// releases GPU resources the engine created. Safe to call more than once.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A registry, camera and CPU tile rasterizer are created when not supplied.
// With WithBackend, a WGPUTileRasterizer drawing into the backend's target is
// created instead of the CPU rasterizer.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine; call Close when done
//   - error: error if the GPU rasterizer or target cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		recordStart:     make(chan struct{}),
		recordStop:      make(chan struct{}),
		recorded:        make(chan recordResult, 1),
		engineTickRate:  time.Second / 60,
		width:           DefaultScreenWidth,
		height:          DefaultScreenHeight,
	}

	for _, opt := range options {
		opt(e)
	}

	e.logger = logging.OrNop(e.logger)
	if e.reg == nil {
		e.reg = light.NewRegistry()
	}
	if e.cam == nil {
		e.cam = camera.NewCamera()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}

	opts := append([]cluster.EngineBuilderOption{cluster.WithLogger(e.logger)}, e.clusterOpts...)
	e.cluster = cluster.NewEngine(e.reg, opts...)

	if e.rasterizer == nil {
		if err := e.createRasterizer(); err != nil {
			e.cluster.Close()
			return nil, err
		}
	}
	e.assigner = cluster.NewTileAssigner(e.cluster, e.rasterizer, e.logger)

	e.recordWG.Add(1)
	go e.record()
	return e, nil
}

// createRasterizer picks the GPU rasterizer when a backend is set, the CPU one otherwise.
func (e *engine) createRasterizer() error {
	if e.backend == nil {
		e.rasterizer = cluster.NewCPUTileRasterizer(e.cluster.TileSize(), e.reg.MaxLights())
		return nil
	}
	if err := e.backend.Resize(e.width, e.height); err != nil {
		return err
	}
	gpu, err := renderer.NewBackendRasterizer(e.backend,
		renderer.WithCapacity(e.reg.MaxLights()),
		renderer.WithBinCount(e.cluster.BinCount()),
		renderer.WithTileSize(e.cluster.TileSize()),
		renderer.WithRasterizerLogger(e.logger),
	)
	if err != nil {
		return err
	}
	e.gpu = gpu
	e.rasterizer = gpu
	return nil
}

func (e *engine) Registry() light.Registry           { return e.reg }
func (e *engine) Camera() camera.Camera              { return e.cam }
func (e *engine) Cluster() cluster.Engine            { return e.cluster }
func (e *engine) Rasterizer() cluster.TileRasterizer { return e.rasterizer }
func (e *engine) Profiler() *profiler.Profiler       { return e.profiler }

func (e *engine) ScreenSize() (uint32, uint32) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.width, e.height
}

func (e *engine) SetScreenSize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("engine: invalid screen size %dx%d", width, height)
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	if e.backend != nil {
		if err := e.backend.Resize(width, height); err != nil {
			return err
		}
	}
	e.width, e.height = width, height
	return nil
}

// record is the command-recording goroutine. Each frame it waits for the counts,
// draws the proxies into the backend's pass when there is one, and reports back.
func (e *engine) record() {
	defer e.recordWG.Done()
	for {
		select {
		case <-e.recordStop:
			return
		case <-e.recordStart:
		}
		e.recorded <- e.recordFrame()
	}
}

func (e *engine) recordFrame() recordResult {
	if e.gpu == nil {
		counts, err := e.assigner.Assign()
		return recordResult{counts: counts, err: err}
	}

	pass, err := e.backend.BeginFrame()
	if err != nil {
		// The counts must still be consumed or the next Begin discards them.
		counts, _ := e.cluster.WaitForCounts()
		return recordResult{counts: counts, err: err}
	}
	e.gpu.SetPass(pass)
	counts, err := e.assigner.Assign()
	e.gpu.SetPass(nil)
	if endErr := e.backend.EndFrame(); err == nil {
		err = endErr
	}
	return recordResult{counts: counts, err: err}
}

func (e *engine) Frame() (*cluster.FrameOutput, error) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	if e.closed {
		return nil, cluster.ErrClosed
	}

	e.cam.Update()
	view := e.cam.FrameView(e.width, e.height)
	frame, err := e.cluster.Begin(view)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.recordStart <- struct{}{}
	out, waitErr := e.cluster.Wait()
	rec := <-e.recorded

	if waitErr != nil {
		return nil, fmt.Errorf("engine: frame %d: %w", frame, waitErr)
	}
	if rec.err != nil {
		return nil, fmt.Errorf("engine: record frame %d: %w", frame, rec.err)
	}
	if e.gpu != nil {
		if err := e.gpu.UploadFrame(out); err != nil {
			return nil, fmt.Errorf("engine: upload frame %d: %w", frame, err)
		}
	}
	if e.profilingEnabled.Load() {
		e.profiler.Record(out.Stats)
	}
	return out, nil
}

func (e *engine) Run(ctx context.Context) error {
	e.running.Store(true)
	errs := make(chan error, 1)

	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender(errs)
	go func() {
		defer e.wg.Done()
		select {
		case <-ctx.Done():
			e.signalQuit()
		case <-e.quitChannel:
		}
	}()
	e.wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// Quit signals all engine goroutines to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	e.signalQuit()
	// Wait out an in-progress frame before tearing down.
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	e.cluster.Close()
	close(e.recordStop)
	e.recordWG.Wait()
	if e.gpu != nil {
		e.gpu.Release()
		e.gpu = nil
	}
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Clusters one frame per iteration and fires the render callback with its output.
// A frame error or a recovered panic is reported on errs and signals quit.
func (e *engine) handleRender(errs chan<- error) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("render goroutine recovered from panic: %v", r)
			errs <- fmt.Errorf("engine: render panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		out, err := e.Frame()
		if err != nil {
			if !errors.Is(err, cluster.ErrClosed) {
				e.logger.Errorf("%v", err)
				errs <- err
			}
			e.signalQuit()
			return
		}

		if e.renderCallback != nil {
			e.renderCallback(dt, out)
		}

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				select {
				case <-e.quitChannel:
					return
				case <-time.After(remaining):
				}
			}
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called after each clustered frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32, out *cluster.FrameOutput)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
