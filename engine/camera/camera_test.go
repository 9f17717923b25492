package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecNear(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDeltaf(t, want[i], got[i], 1e-4, "component %d: want %v, got %v", i, want, got)
	}
}

func TestNewCamera_Defaults(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Ident4(), c.ViewMatrix())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, c.Up())
	assert.Equal(t, mgl32.Vec3{}, c.Position())
	assert.Nil(t, c.Controller())
	assert.Equal(t, common.Perspective(c.Fov(), c.Aspect(), c.Near(), c.Far()), c.ProjectionMatrix())
}

func TestCamera_FrameView(t *testing.T) {
	c := NewCamera(WithFov(mgl32.DegToRad(70)), WithNear(0.5), WithFar(300))
	fv := c.FrameView(1920, 1080)

	require.NoError(t, fv.Validate())
	assert.Equal(t, uint32(1920), fv.ScreenWidth)
	assert.Equal(t, uint32(1080), fv.ScreenHeight)
	assert.InDelta(t, 1920.0/1080.0, fv.Aspect, 1e-6)
	assert.Equal(t, float32(0.5), fv.Near)
	assert.Equal(t, float32(300), fv.Far)
	assert.Equal(t, fv.Aspect, c.Aspect())
	assert.Equal(t, c.ProjectionMatrix(), fv.Projection)
}

func TestCamera_FollowsController(t *testing.T) {
	ctrl := NewCameraController(WithRadius(10), WithElevation(0), WithAzimuth(0))
	c := NewCamera(WithController(ctrl))

	vecNear(t, mgl32.Vec3{0, 0, 10}, c.Position())
	target := mgl32.TransformCoordinate(mgl32.Vec3{}, c.ViewMatrix())
	vecNear(t, mgl32.Vec3{0, 0, -10}, target)
	assert.True(t, c.Frustum().ContainsSphere(mgl32.Vec3{}, 0.1))
	assert.False(t, c.Frustum().ContainsSphere(mgl32.Vec3{0, 0, 20}, 1))

	ctrl.SetAzimuth(math.Pi / 2)
	c.Update()
	target = mgl32.TransformCoordinate(mgl32.Vec3{}, c.ViewMatrix())
	vecNear(t, mgl32.Vec3{0, 0, -10}, target)
	vecNear(t, mgl32.Vec3{10, 0, 0}, c.Position())
}

func TestCamera_ViewProjection(t *testing.T) {
	c := NewCamera(WithController(NewCameraController(WithTarget(1, 2, 3))))
	want := c.ProjectionMatrix().Mul4(c.ViewMatrix())
	assert.True(t, want.ApproxEqualThreshold(c.ViewProjectionMatrix(), 1e-5))
}

func TestCameraController_Clamps(t *testing.T) {
	cc := NewCameraController(
		WithRadiusBounds(5, 50),
		WithElevationBounds(-0.5, 0.5),
		WithZoomSpeed(10),
		WithRadius(20),
	)

	cc.Zoom(100)
	assert.Equal(t, float32(5), cc.Radius())
	cc.Zoom(-100)
	assert.Equal(t, float32(50), cc.Radius())

	cc.Orbit(0, 3)
	assert.Equal(t, float32(0.5), cc.Elevation())
	cc.SetElevation(-3)
	assert.Equal(t, float32(-0.5), cc.Elevation())
	cc.SetRadius(1)
	assert.Equal(t, float32(5), cc.Radius())
}

func TestCameraController_OrbitSteps(t *testing.T) {
	cc := NewCameraController(WithOrbitSpeed(0.25), WithElevation(0))
	cc.OrbitRight()
	cc.OrbitRight()
	cc.OrbitLeft()
	assert.InDelta(t, 0.25, cc.Azimuth(), 1e-6)
	cc.OrbitUp()
	assert.InDelta(t, 0.25, cc.Elevation(), 1e-6)
	cc.OrbitDown()
	assert.InDelta(t, 0, cc.Elevation(), 1e-6)
	assert.InDelta(t, cc.Radius(), cc.Position().Sub(cc.Target()).Len(), 1e-3)
}

func TestCameraController_SetPositionRederivesOrbit(t *testing.T) {
	cc := NewCameraController(WithTarget(1, 1, 1))
	cc.SetPosition(mgl32.Vec3{1, 4, 5})

	assert.InDelta(t, 5, cc.Radius(), 1e-5)
	assert.InDelta(t, math.Asin(0.6), cc.Elevation(), 1e-5)
	assert.InDelta(t, 0, cc.Azimuth(), 1e-5)

	cc.SetTarget(mgl32.Vec3{1, 1, 1})
	vecNear(t, mgl32.Vec3{1, 4, 5}, cc.Position())
}

func TestCameraController_PanKeepsOffset(t *testing.T) {
	cc := NewCameraController(WithRadius(10), WithElevation(0), WithPanSpeed(2))
	offset := cc.Position().Sub(cc.Target())

	cc.PanRight(1)
	vecNear(t, mgl32.Vec3{2, 0, 0}, cc.Target())
	cc.PanUp(1)
	vecNear(t, mgl32.Vec3{2, 2, 0}, cc.Target())
	cc.PanForward(1)
	vecNear(t, mgl32.Vec3{2, 2, -2}, cc.Target())

	vecNear(t, offset, cc.Position().Sub(cc.Target()))
}
