package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController defines the union interface for camera control systems.
// Controllers own positional state (position, target). Camera reads from the
// controller and computes view/projection matrices. Orbit and planar controls work
// simultaneously from a single controller instance.
type CameraController interface {
	orbitCameraController
	planarCameraController

	// Position returns the camera's world-space position.
	Position() mgl32.Vec3

	// Target returns the look-at point.
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space pivot
	SetTarget(target mgl32.Vec3)

	// SetPosition sets the camera's world-space position directly. The orbit
	// coordinates are re-derived from the new offset to the target.
	//
	// Parameters:
	//   - position: world-space eye position
	SetPosition(position mgl32.Vec3)

	// Zoom adjusts the orbit radius. Positive delta moves closer to the target.
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)
}

// orbitCameraController provides third-person orbit controls using spherical
// coordinates (radius, azimuth, elevation) relative to the target.
type orbitCameraController interface {
	// Orbit rotates the camera around the target by the given angles, in radians.
	// Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dAzimuth: change in horizontal angle
	//   - dElevation: change in vertical angle
	Orbit(dAzimuth, dElevation float32)

	// OrbitLeft rotates the camera left around the target by one orbit speed step.
	OrbitLeft()

	// OrbitRight rotates the camera right around the target by one orbit speed step.
	OrbitRight()

	// OrbitUp tilts the camera upward by one orbit speed step.
	OrbitUp()

	// OrbitDown tilts the camera downward by one orbit speed step.
	OrbitDown()

	Radius() float32
	SetRadius(radius float32)
	MinRadius() float32
	MaxRadius() float32

	// Azimuth returns the horizontal angle around the Y axis, in radians.
	Azimuth() float32
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle from the horizontal plane, in radians.
	Elevation() float32
	SetElevation(elevation float32)
	MinElevation() float32
	MaxElevation() float32

	OrbitSpeed() float32
	ZoomSpeed() float32
}

// planarCameraController translates the camera along its local axes. Panning shifts
// both position and target by the same offset, preserving the orbit relationship.
type planarCameraController interface {
	// PanRight translates along the local right axis. Negative delta moves left.
	PanRight(delta float32)

	// PanUp translates along the local up axis. Negative delta moves down.
	PanUp(delta float32)

	// PanForward translates along the view direction. Positive delta moves toward the target.
	PanForward(delta float32)

	PanSpeed() float32
}
