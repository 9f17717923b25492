package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective creates a perspective projection matrix compatible with WebGPU's
// clip-space convention: X/Y in [-1, 1], Z in [0, 1]. mgl32.Perspective targets
// OpenGL's [-1, 1] depth range and is not used for that reason.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := 1.0 / float32(math.Tan(float64(fovY)/2.0))

	var out mgl32.Mat4
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1.0
	out[14] = (near * far) / (near - far)
	return out
}

// ViewDepth returns the distance of a view-space point along the camera's forward
// axis. View space is right-handed with the camera looking down -Z.
//
// Parameters:
//   - viewPos: a point already transformed into view space
//
// Returns:
//   - float32: the forward distance (positive in front of the camera)
func ViewDepth(viewPos mgl32.Vec3) float32 {
	return -viewPos[2]
}

// ViewForward is the camera forward axis expressed in view space.
var ViewForward = mgl32.Vec3{0, 0, -1}

// MaxComponent returns the largest component of v.
//
// Parameters:
//   - v: the vector to inspect
//
// Returns:
//   - float32: max(v.x, v.y, v.z)
func MaxComponent(v mgl32.Vec3) float32 {
	return max(v[0], v[1], v[2])
}
