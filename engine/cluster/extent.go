package cluster

import (
	"math"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelEpsilon is the |cross(axis, forward)| below which a spot axis is treated
// as parallel to the camera forward axis.
const parallelEpsilon = 1e-6

// pointExtent returns the exact view-depth interval of a sphere.
//
// Parameters:
//   - viewCenter: the sphere center in view space
//   - radius: the sphere radius
//
// Returns:
//   - front: depth − radius
//   - back: depth + radius
func pointExtent(viewCenter mgl32.Vec3, radius float32) (front, back float32) {
	depth := common.ViewDepth(viewCenter)
	return depth - radius, depth + radius
}

// spotExtent returns a conservative view-depth interval for a spot cone with its
// apex and unit axis already in view space.
//
// The extreme depths of the spherical cap lie on the two cap points reached by
// rotating the axis by ±half-angle within the plane spanned by the axis and the
// camera forward. When that plane is undefined, or when the forward axis or its
// opposite falls inside the cone, the cap reaches a full length along the forward
// axis and the interval degrades to the apex sphere [depth−L, depth+L].
//
// Parameters:
//   - apex: the cone apex in view space
//   - axis: the unit cone axis in view space
//   - length: the cone length
//   - outerCos: cos(outer half-angle)
//
// Returns:
//   - front: the nearest depth any point of the cone reaches
//   - back: the farthest depth any point of the cone reaches
func spotExtent(apex, axis mgl32.Vec3, length, outerCos float32) (front, back float32) {
	f := common.ViewForward
	apexDepth := common.ViewDepth(apex)

	cosAF := axis.Dot(f)
	r := axis.Cross(f)
	rLen := r.Len()
	if cosAF > outerCos || -cosAF > outerCos || rLen < parallelEpsilon {
		return apexDepth - length, apexDepth + length
	}
	r = r.Mul(1 / rLen)

	sinA := float32(math.Sqrt(float64(max(0, 1-outerCos*outerCos))))
	// Rodrigues with r ⟂ axis: axis·cos + (r × axis)·sin.
	ortho := r.Cross(axis)
	towards := axis.Mul(outerCos).Add(ortho.Mul(sinA))
	away := axis.Mul(outerCos).Sub(ortho.Mul(sinA))

	d1 := common.ViewDepth(apex.Add(towards.Mul(length)))
	d2 := common.ViewDepth(apex.Add(away.Mul(length)))

	return min(d1, d2, apexDepth), max(d1, d2, apexDepth)
}

// lightExtent computes the depth interval for one registry record.
func lightExtent(rec *light.GPULight, view mgl32.Mat4) (front, back float32) {
	pos := mgl32.TransformCoordinate(mgl32.Vec3(rec.Position), view)
	if light.LightType(rec.LightType) != light.LightTypeSpot {
		return pointExtent(pos, rec.Range)
	}
	axis := mgl32.TransformNormal(mgl32.Vec3(rec.Direction), view)
	if l := axis.Len(); l > 0 {
		axis = axis.Mul(1 / l)
	}
	return spotExtent(pos, axis, rec.Range, rec.OuterCutoff)
}

// computeExtents fills in the depth interval of every entry.
func computeExtents(view light.View, viewMat mgl32.Mat4, entries []CulledLightEntry) {
	for i := range entries {
		e := &entries[i]
		e.FrontDepth, e.BackDepth = lightExtent(view.Record(int(e.OriginalIndex)), viewMat)
	}
}
