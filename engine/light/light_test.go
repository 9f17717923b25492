package light

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfluenceRadius(t *testing.T) {
	tests := []struct {
		name     string
		spectrum mgl32.Vec3
		want     float32
	}{
		{"black", mgl32.Vec3{}, 0},
		{"unit white", mgl32.Vec3{1, 1, 1}, 10},
		{"peak channel wins", mgl32.Vec3{0.1, 4, 0.2}, 20},
		{"negative ignored", mgl32.Vec3{-5, -1, -2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, InfluenceRadius(tt.spectrum), 1e-4)
		})
	}
}

func TestSpectrumForRadius_RoundTrip(t *testing.T) {
	for _, r := range []float32{0.5, 1, 7, 42} {
		got := InfluenceRadius(mgl32.Vec3{SpectrumForRadius(r), 0, 0})
		assert.InDelta(t, r, got, 1e-3)
	}
}

func TestNewLight_Defaults(t *testing.T) {
	l := NewPointLight(WithPosition(1, 2, 3))

	assert.Equal(t, LightTypePoint, l.Type())
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, l.Position())
	assert.True(t, l.Enabled())
	assert.InDelta(t, 10, l.Range(), 1e-4)

	bs := l.BoundingSphere()
	assert.Equal(t, l.Position(), bs.Center)
	assert.Equal(t, l.Range(), bs.Radius)
}

func TestNewLight_RadiusFollowsIntensity(t *testing.T) {
	l := NewPointLight(WithColor(1, 0.5, 0.25), WithIntensity(4))

	assert.Equal(t, mgl32.Vec3{4, 2, 1}, l.Spectrum())
	assert.InDelta(t, 20, l.Range(), 1e-4)
}

func TestWithSpotCone_Clamps(t *testing.T) {
	l := NewSpotLight(WithSpotCone(50, 30))
	assert.InDelta(t, cosDeg(30), l.OuterCutoff(), 1e-6)
	assert.InDelta(t, l.OuterCutoff(), l.InnerCutoff(), 1e-6)

	wide := NewSpotLight(WithSpotCone(10, 120))
	assert.InDelta(t, cosDeg(maxConeDeg), wide.OuterCutoff(), 1e-6)
	assert.Greater(t, wide.OuterCutoff(), float32(0))
}

func TestClampFromPoles(t *testing.T) {
	tests := []struct {
		name string
		in   mgl32.Vec3
	}{
		{"straight up", mgl32.Vec3{0, 1, 0}},
		{"straight down", mgl32.Vec3{0, -1, 0}},
		{"nearly up with azimuth", mgl32.Vec3{1e-4, 1, 1e-4}},
		{"zero", mgl32.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := clampFromPoles(tt.in)
			assert.InDelta(t, 1, d.Len(), 1e-5)
			assert.LessOrEqual(t, mgl32.Abs(d.Dot(WorldUp)), float32(polarLimit)+1e-5)
			assert.Greater(t, d.Cross(WorldUp).Len(), float32(1e-3))
		})
	}

	sideways := mgl32.Vec3{0.6, 0, 0.8}
	assert.True(t, sideways.ApproxEqualThreshold(clampFromPoles(sideways), 1e-6))

	// The hemisphere is kept.
	assert.Less(t, clampFromPoles(mgl32.Vec3{0, -3, 0})[1], float32(0))
	assert.Greater(t, clampFromPoles(mgl32.Vec3{0, 3, 0})[1], float32(0))
}

func TestSpotLight_DirectionNormalizedAndClamped(t *testing.T) {
	l := NewSpotLight(WithDirection(0, -5, 0))
	d := l.Direction()
	assert.InDelta(t, 1, d.Len(), 1e-5)
	assert.Less(t, d[1], float32(-0.99))
	assert.Less(t, mgl32.Abs(d[1]), float32(1))
}

// coneSamples returns points on the boundary of a spot volume: the apex, the rim
// circle and the spherical cap.
func coneSamples(p, d mgl32.Vec3, length, cutoff float32) []mgl32.Vec3 {
	up := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(d.Dot(up)) > 0.9 {
		up = mgl32.Vec3{1, 0, 0}
	}
	u := d.Cross(up).Normalize()
	v := d.Cross(u)
	theta := math.Acos(float64(cutoff))

	pts := []mgl32.Vec3{p}
	for i := 0; i <= 8; i++ {
		phi := theta * float64(i) / 8
		for j := range 16 {
			a := 2 * math.Pi * float64(j) / 16
			radial := u.Mul(float32(math.Cos(a))).Add(v.Mul(float32(math.Sin(a))))
			dir := d.Mul(float32(math.Cos(phi))).Add(radial.Mul(float32(math.Sin(phi))))
			pts = append(pts, p.Add(dir.Mul(length)))
		}
	}
	return pts
}

func TestSpotLight_BoundingSphereEnclosesCone(t *testing.T) {
	for _, outer := range []float32{5, 20, 44, 46, 60, 85} {
		l := NewSpotLight(
			WithPosition(3, 1, -2),
			WithDirection(0.3, -0.2, 1),
			WithIntensity(2),
			WithSpotCone(outer/2, outer),
		)
		bs := l.BoundingSphere()
		for _, pt := range coneSamples(l.Position(), l.Direction(), l.Range(), l.OuterCutoff()) {
			require.LessOrEqualf(t, pt.Sub(bs.Center).Len(), bs.Radius*1.0001+1e-4,
				"outer=%v point %v outside sphere %+v", outer, pt, bs)
		}
		// Tighter than the naive sphere around the apex.
		assert.LessOrEqual(t, bs.Radius, l.Range()+1e-4)
	}
}

func TestFromLight_CopiesForeignImplementations(t *testing.T) {
	src := NewSpotLight(WithPosition(1, 1, 1), WithColor(0, 2, 0))
	cp := fromLight(src)

	assert.Equal(t, src.Position(), cp.Position())
	assert.Equal(t, src.Range(), cp.Range())
	assert.NotSame(t, src.(*lightImpl), cp)
}

func TestGPULight_Layout(t *testing.T) {
	var g GPULight
	assert.Equal(t, GPULightSize, g.Size())

	l := NewSpotLight(WithPosition(1, 2, 3), WithColor(0.5, 0.5, 0.5), WithIntensity(2))
	g = ToGPULight(l)
	buf := g.Marshal()
	require.Len(t, buf, GPULightSize)

	f := func(off int) float32 {
		return math.Float32frombits(uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24)
	}
	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(3), f(8))
	assert.Equal(t, byte(LightTypeSpot), buf[12])
	assert.Equal(t, float32(1), f(16))
	assert.Equal(t, l.Range(), f(28))
	assert.Equal(t, l.OuterCutoff(), f(48))
	assert.Equal(t, make([]byte, 12), buf[52:64])
}

func TestGPULightSource_Embedded(t *testing.T) {
	assert.Contains(t, GPULightSource, "struct Light")
	assert.Contains(t, GPULightSource, "outer_cutoff")
}
