package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/engine/camera"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
	"github.com/Carmen-Shannon/oxy-cluster/engine/profiler"
	"github.com/Carmen-Shannon/oxy-cluster/engine/renderer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-frame stage profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled.Store(enabled)
	}
}

// WithProfiler replaces the default profiler, for a custom interval or clock.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for light and camera updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithRegistry sets the light registry to cluster. A default registry is created
// when not given.
//
// Parameters:
//   - reg: the registry
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRegistry(reg light.Registry) EngineBuilderOption {
	return func(e *engine) {
		e.reg = reg
	}
}

// WithCamera sets the camera frames are clustered from.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.cam = c
	}
}

// WithClusterOptions passes options through to cluster.NewEngine.
//
// Parameters:
//   - opts: the clustering engine options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClusterOptions(opts ...cluster.EngineBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.clusterOpts = append(e.clusterOpts, opts...)
	}
}

// WithRasterizer sets the tile rasterizer the recording goroutine draws with.
// It takes precedence over WithBackend.
func WithRasterizer(r cluster.TileRasterizer) EngineBuilderOption {
	return func(e *engine) {
		e.rasterizer = r
	}
}

// WithBackend draws the tile proxies on the GPU through b. The engine creates a
// WGPUTileRasterizer on b's device and a render pass per frame on b's target.
// The caller keeps ownership of b.
//
// Parameters:
//   - b: the GPU backend
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(b renderer.Backend) EngineBuilderOption {
	return func(e *engine) {
		e.backend = b
	}
}

// WithLogger sets the logger shared by the engine, the clustering engine and the profiler.
func WithLogger(l logging.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}

// WithScreenSize sets the screen size frames are clustered for.
//
// Parameters:
//   - width: the screen width in pixels
//   - height: the screen height in pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScreenSize(width, height uint32) EngineBuilderOption {
	return func(e *engine) {
		e.width, e.height = width, height
	}
}
