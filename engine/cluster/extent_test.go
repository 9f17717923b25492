package cluster

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointExtent_Exact(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		c := mgl32.Vec3{rng.Float32()*100 - 50, rng.Float32()*100 - 50, rng.Float32()*-200 + 20}
		r := rng.Float32() * 30
		front, back := pointExtent(c, r)
		assert.Equal(t, -c[2]-r, front)
		assert.Equal(t, -c[2]+r, back)
	}
}

// spotVolumeSamples returns apex, rim and cap points of a spot cone.
func spotVolumeSamples(apex, axis mgl32.Vec3, length, outerCos float32) []mgl32.Vec3 {
	ref := mgl32.Vec3{0, 1, 0}
	if mgl32.Abs(axis.Dot(ref)) > 0.9 {
		ref = mgl32.Vec3{1, 0, 0}
	}
	u := axis.Cross(ref).Normalize()
	v := axis.Cross(u)
	theta := math.Acos(float64(outerCos))

	pts := []mgl32.Vec3{apex}
	for i := 0; i <= 12; i++ {
		phi := theta * float64(i) / 12
		for j := range 48 {
			a := 2 * math.Pi * float64(j) / 48
			radial := u.Mul(float32(math.Cos(a))).Add(v.Mul(float32(math.Sin(a))))
			dir := axis.Mul(float32(math.Cos(phi))).Add(radial.Mul(float32(math.Sin(phi))))
			pts = append(pts, apex.Add(dir.Mul(length)))
		}
	}
	return pts
}

func randomUnit(rng *rand.Rand) mgl32.Vec3 {
	for {
		v := mgl32.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()*2 - 1}
		if l := v.Len(); l > 0.1 && l <= 1 {
			return v.Mul(1 / l)
		}
	}
}

func TestSpotExtent_Conservative(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for range 300 {
		apex := mgl32.Vec3{rng.Float32()*40 - 20, rng.Float32()*40 - 20, rng.Float32()*-80 + 10}
		axis := randomUnit(rng)
		length := 1 + rng.Float32()*30
		outerCos := float32(math.Cos(float64(mgl32.DegToRad(1 + rng.Float32()*85))))

		front, back := spotExtent(apex, axis, length, outerCos)
		require.LessOrEqual(t, front, back)

		lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
		for _, p := range spotVolumeSamples(apex, axis, length, outerCos) {
			d := common.ViewDepth(p)
			lo, hi = min(lo, d), max(hi, d)
		}
		tol := 1e-3 * (1 + length)
		require.LessOrEqualf(t, front, lo+tol, "front %v exceeds sampled min %v", front, lo)
		require.GreaterOrEqualf(t, back, hi-tol, "back %v below sampled max %v", back, hi)

		// Never looser than the apex sphere.
		apexDepth := common.ViewDepth(apex)
		assert.GreaterOrEqual(t, front, apexDepth-length-tol)
		assert.LessOrEqual(t, back, apexDepth+length+tol)
	}
}

func TestSpotExtent_TightWhenAxisSideways(t *testing.T) {
	// Axis along +X, 30° cone, apex 50 ahead: depth range is ±L·sin30° around the apex.
	apex := mgl32.Vec3{0, 0, -50}
	outerCos := float32(math.Cos(math.Pi / 6))
	front, back := spotExtent(apex, mgl32.Vec3{1, 0, 0}, 10, outerCos)

	assert.InDelta(t, 45, front, 1e-4)
	assert.InDelta(t, 55, back, 1e-4)
}

func TestSpotExtent_FallbackCases(t *testing.T) {
	apex := mgl32.Vec3{0, 0, -10}
	outerCos := float32(math.Cos(math.Pi / 8))

	tests := []struct {
		name string
		axis mgl32.Vec3
	}{
		{"forward inside cone", mgl32.Vec3{0.1, 0, -1}.Normalize()},
		{"backward inside cone", mgl32.Vec3{0.1, 0, 1}.Normalize()},
		{"parallel to forward", mgl32.Vec3{0, 0, -1}},
		{"antiparallel to forward", mgl32.Vec3{0, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, back := spotExtent(apex, tt.axis, 7, outerCos)
			assert.Equal(t, float32(3), front)
			assert.Equal(t, float32(17), back)
		})
	}
}

func TestSpotExtent_ApexBoundsInterval(t *testing.T) {
	// Axis pointing mostly away from the camera: the apex is the front.
	apex := mgl32.Vec3{0, 0, -20}
	axis := mgl32.Vec3{1, 0, -1}.Normalize()
	front, back := spotExtent(apex, axis, 10, float32(math.Cos(math.Pi/12)))

	assert.InDelta(t, 20, front, 1e-5)
	assert.Greater(t, back, float32(20))
}
