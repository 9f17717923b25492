package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoFrame is returned by EndFrame when BeginFrame has not been called.
var ErrNoFrame = errors.New("renderer: no frame in progress")

type headlessBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	forceFallbackAdapter bool
	sampleCount          MSAASampleCount
	format               wgpu.TextureFormat

	width, height uint32
	target        *wgpu.Texture
	targetView    *wgpu.TextureView
	msaaTexture   *wgpu.Texture
	msaaView      *wgpu.TextureView
	passDesc      *wgpu.RenderPassDescriptor

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
}

var _ Backend = &headlessBackendImpl{}

// NewHeadlessBackend requests an adapter and device without a presentation surface.
//
// Parameters:
//   - opts: variadic list of BackendBuilderOption functions
//
// Returns:
//   - Backend: the new backend; call Resize before the first frame
//   - error: error if no adapter or device is available
func NewHeadlessBackend(opts ...BackendBuilderOption) (Backend, error) {
	b := &headlessBackendImpl{
		mu:          &sync.Mutex{},
		sampleCount: MSAAOff,
		format:      DefaultTargetFormat,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("renderer: request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Cluster Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("renderer: request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()
	return b, nil
}

func (b *headlessBackendImpl) Device() *wgpu.Device         { return b.device }
func (b *headlessBackendImpl) Queue() *wgpu.Queue           { return b.queue }
func (b *headlessBackendImpl) Format() wgpu.TextureFormat   { return b.format }
func (b *headlessBackendImpl) SampleCount() MSAASampleCount { return b.sampleCount }

func (b *headlessBackendImpl) Resize(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("renderer: invalid target size %dx%d", width, height)
	}
	if width == b.width && height == b.height && b.target != nil {
		return nil
	}
	b.releaseTarget()

	var err error
	b.target, b.targetView, err = b.createTexture("Cluster Target", width, height, 1)
	if err != nil {
		return err
	}

	// When multisampled, the pass draws into the MSAA texture and resolves into the
	// single-sample target.
	count := uint32(b.sampleCount)
	view := b.targetView
	var resolve *wgpu.TextureView
	storeOp := wgpu.StoreOpStore
	if count > 1 {
		b.msaaTexture, b.msaaView, err = b.createTexture("Cluster MSAA Target", width, height, count)
		if err != nil {
			b.releaseTarget()
			return err
		}
		view, resolve = b.msaaView, b.targetView
		storeOp = wgpu.StoreOpDiscard
	}

	b.passDesc = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          view,
				ResolveTarget: resolve,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	}
	b.width, b.height = width, height
	return nil
}

func (b *headlessBackendImpl) createTexture(label string, width, height, samples uint32) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        b.format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("renderer: %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("renderer: %s view: %w", label, err)
	}
	return tex, view, nil
}

func (b *headlessBackendImpl) BeginFrame() (*wgpu.RenderPassEncoder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.passDesc == nil {
		return nil, errors.New("renderer: BeginFrame before Resize")
	}
	if b.frameEncoder != nil {
		return nil, errors.New("renderer: BeginFrame while a frame is in progress")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("renderer: command encoder: %w", err)
	}
	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(b.passDesc)
	return b.framePass, nil
}

func (b *headlessBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
		b.framePass = nil
		return fmt.Errorf("renderer: finish frame: %w", err)
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
	return nil
}

func (b *headlessBackendImpl) releaseTarget() {
	if b.msaaView != nil {
		b.msaaView.Release()
		b.msaaView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.targetView != nil {
		b.targetView.Release()
		b.targetView = nil
	}
	if b.target != nil {
		b.target.Release()
		b.target = nil
	}
	b.passDesc = nil
	b.width, b.height = 0, 0
}

func (b *headlessBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseTarget()
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
