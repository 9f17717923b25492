package renderer

import (
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/cluster"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/Carmen-Shannon/oxy-cluster/engine/logging"
	"github.com/cogentcore/webgpu/wgpu"
)

// BackendBuilderOption is a functional option applied to a backend during construction via NewHeadlessBackend.
type BackendBuilderOption func(*headlessBackendImpl)

// WithMSAA sets the sample count of the offscreen target.
// When not specified, the default is MSAAOff.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - BackendBuilderOption: a function that applies the MSAA option to a backend
func WithMSAA(count MSAASampleCount) BackendBuilderOption {
	return func(b *headlessBackendImpl) {
		b.sampleCount = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - BackendBuilderOption: a function that applies the force software renderer option to a backend
func WithForceSoftwareRenderer(force bool) BackendBuilderOption {
	return func(b *headlessBackendImpl) {
		b.forceFallbackAdapter = force
	}
}

// TileRasterizerBuilderOption is a functional option applied to a WGPUTileRasterizer during construction.
type TileRasterizerBuilderOption func(*WGPUTileRasterizer)

// WithCapacity sets the maximum number of surviving lights per frame. Use the
// registry's MaxLights.
//
// Parameters:
//   - n: the light capacity (light.DefaultMaxLights when 0)
//
// Returns:
//   - TileRasterizerBuilderOption: a function that applies the capacity option
func WithCapacity(n int) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.capacity = n
	}
}

// WithBinCount sets the number of Z-bins the bin buffer holds.
func WithBinCount(n int) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.binCount = n
	}
}

// WithTileSize sets the tile edge in pixels. It must match the engine's tile size.
func WithTileSize(px uint32) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.tileSize = px
	}
}

// WithTarget sets the format and sample count of the pass the proxies are drawn in.
//
// Parameters:
//   - format: the color target format
//   - samples: the target sample count
//
// Returns:
//   - TileRasterizerBuilderOption: a function that applies the target option
func WithTarget(format wgpu.TextureFormat, samples MSAASampleCount) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.format = format
		r.sampleCount = uint32(samples)
	}
}

// WithPipelines shares already created tile pipelines. The rasterizer does not
// release pipelines it did not create.
func WithPipelines(p *TilePipelines) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.pipelines = p
	}
}

// WithRasterizerLogger sets the logger used for buffer resize diagnostics.
func WithRasterizerLogger(l logging.Logger) TileRasterizerBuilderOption {
	return func(r *WGPUTileRasterizer) {
		r.logger = l
	}
}

// NewWGPUTileRasterizer creates the rasterizer's buffers and, unless shared through
// WithPipelines, its pipelines.
//
// Parameters:
//   - device: the WebGPU device
//   - opts: variadic list of TileRasterizerBuilderOption functions
//
// Returns:
//   - *WGPUTileRasterizer: the new rasterizer
//   - error: error if any GPU object cannot be created
func NewWGPUTileRasterizer(device *wgpu.Device, opts ...TileRasterizerBuilderOption) (*WGPUTileRasterizer, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	r := &WGPUTileRasterizer{
		device: device,
		queue:  device.GetQueue(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.capacity = common.Coalesce(r.capacity, light.DefaultMaxLights)
	r.binCount = common.Coalesce(r.binCount, cluster.DefaultBinCount)
	r.tileSize = common.Coalesce(r.tileSize, cluster.DefaultTileSize)
	r.format = common.Coalesce(r.format, DefaultTargetFormat)
	r.sampleCount = common.Coalesce(r.sampleCount, uint32(MSAAOff))
	r.logger = logging.OrNop(r.logger)

	if r.pipelines == nil {
		p, err := NewTilePipelines(device, r.format, r.sampleCount)
		if err != nil {
			return nil, err
		}
		r.pipelines = p
		r.ownsPipelines = true
	}
	if err := r.createBuffers(); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

// NewBackendRasterizer creates a rasterizer drawing into b's offscreen target.
//
// Parameters:
//   - b: the backend providing the device and target
//   - opts: additional rasterizer options
//
// Returns:
//   - *WGPUTileRasterizer: the new rasterizer
//   - error: error if any GPU object cannot be created
func NewBackendRasterizer(b Backend, opts ...TileRasterizerBuilderOption) (*WGPUTileRasterizer, error) {
	opts = append([]TileRasterizerBuilderOption{WithTarget(b.Format(), b.SampleCount())}, opts...)
	return NewWGPUTileRasterizer(b.Device(), opts...)
}
