package renderer

import "github.com/cogentcore/webgpu/wgpu"

// MSAASampleCount controls the number of samples of the offscreen color target the
// tile proxy pass draws into. Only specific power-of-two values are valid for GPU
// hardware. WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisampling (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisampling.
	MSAA4x MSAASampleCount = 4
)

// DefaultTargetFormat is the color format of the offscreen target.
const DefaultTargetFormat = wgpu.TextureFormatRGBA8Unorm

// Backend owns a WebGPU device and an offscreen color target, and hands out one
// render pass per frame for the tile proxy draws.
type Backend interface {
	// Device returns the WebGPU device.
	Device() *wgpu.Device

	// Queue returns the device queue.
	Queue() *wgpu.Queue

	// Format returns the color target format.
	Format() wgpu.TextureFormat

	// SampleCount returns the color target sample count.
	SampleCount() MSAASampleCount

	// Resize recreates the offscreen target for a new screen size.
	//
	// Parameters:
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//
	// Returns:
	//   - error: error if the target cannot be created
	Resize(width, height uint32) error

	// BeginFrame creates a command encoder and begins a render pass on the offscreen
	// target.
	//
	// Returns:
	//   - *wgpu.RenderPassEncoder: the frame's render pass
	//   - error: error if no target exists or the encoder cannot be created
	BeginFrame() (*wgpu.RenderPassEncoder, error)

	// EndFrame ends the frame's render pass and submits the recorded commands.
	//
	// Returns:
	//   - error: error if no frame is in progress or the commands cannot be finished
	EndFrame() error

	// Release frees the target, device, adapter and instance.
	Release()
}
