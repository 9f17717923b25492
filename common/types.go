// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// FrameView is the per-frame camera state consumed by the clustering engine.
// It is produced by the camera once per frame and never mutated afterwards.
type FrameView struct {
	// View transforms world space into right-handed view space (camera looking down -Z).
	View mgl32.Mat4
	// Projection is a WebGPU-convention perspective matrix (depth in [0, 1]), see Perspective.
	Projection mgl32.Mat4
	// Near and Far are the clip distances used to build Projection.
	Near, Far float32
	// Aspect is width / height.
	Aspect float32
	// FovY is the vertical field of view in radians.
	FovY float32
	// ScreenWidth and ScreenHeight are the render target size in pixels.
	ScreenWidth, ScreenHeight uint32
}

// ErrInvalidFrameView is wrapped by FrameView.Validate failures.
var ErrInvalidFrameView = errors.New("invalid frame view")

// ViewProjection returns Projection × View.
func (v FrameView) ViewProjection() mgl32.Mat4 {
	return v.Projection.Mul4(v.View)
}

// Validate checks that the view can drive a clustering frame.
//
// Returns:
//   - error: a wrapped ErrInvalidFrameView describing the first problem, or nil
func (v FrameView) Validate() error {
	switch {
	case v.ScreenWidth == 0 || v.ScreenHeight == 0:
		return fmt.Errorf("%w: screen size %dx%d", ErrInvalidFrameView, v.ScreenWidth, v.ScreenHeight)
	case v.Near <= 0:
		return fmt.Errorf("%w: near plane %v must be positive", ErrInvalidFrameView, v.Near)
	case v.Far <= v.Near:
		return fmt.Errorf("%w: far plane %v must exceed near plane %v", ErrInvalidFrameView, v.Far, v.Near)
	}
	return nil
}

// NewFrameView builds a FrameView from a view matrix and perspective parameters.
//
// Parameters:
//   - view: the world-to-view matrix
//   - fovY: vertical field of view in radians
//   - near: near clip distance
//   - far: far clip distance
//   - width: render target width in pixels
//   - height: render target height in pixels
//
// Returns:
//   - FrameView: the assembled frame view
func NewFrameView(view mgl32.Mat4, fovY, near, far float32, width, height uint32) FrameView {
	aspect := float32(1)
	if height > 0 {
		aspect = float32(width) / float32(height)
	}
	return FrameView{
		View:         view,
		Projection:   Perspective(fovY, aspect, near, far),
		Near:         near,
		Far:          far,
		Aspect:       aspect,
		FovY:         fovY,
		ScreenWidth:  width,
		ScreenHeight: height,
	}
}
