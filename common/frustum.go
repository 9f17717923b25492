package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
// The normal points into the half-space considered "inside".
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// SignedDistance returns the signed distance from pt to the plane. Positive values
// are on the inside of the plane.
//
// Parameters:
//   - pt: the point to measure
//
// Returns:
//   - float32: the signed distance
func (p Plane) SignedDistance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// CullingPlaneCount is the number of planes used for light culling. The far plane is
// never tested; lights past the clustered depth range are handled by the Z-bins.
const CullingPlaneCount = 5

// ExtractFrustumFromMatrix extracts frustum planes from a projection or
// view-projection matrix using the Gribb/Hartmann method. The matrix is expected to
// follow the WebGPU clip-space convention (depth in [0, 1]), so the near plane is
// row2 alone rather than row3 + row2.
//
// Passing a projection matrix yields view-space planes; passing a view-projection
// matrix yields world-space planes.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - m: the column-major matrix to extract from
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(m mgl32.Mat4) Frustum {
	var f Frustum

	r0, r1, r2, r3 := m.Row(0), m.Row(1), m.Row(2), m.Row(3)

	f.Planes[FrustumLeft] = planeFromRow(r3.Add(r0))
	f.Planes[FrustumRight] = planeFromRow(r3.Sub(r0))
	f.Planes[FrustumBottom] = planeFromRow(r3.Add(r1))
	f.Planes[FrustumTop] = planeFromRow(r3.Sub(r1))
	f.Planes[FrustumNear] = planeFromRow(r2)
	f.Planes[FrustumFar] = planeFromRow(r3.Sub(r2))

	return f
}

// CullingPlanes returns the planes tested by the light culler in the order near,
// left, right, bottom, top.
//
// Returns:
//   - [CullingPlaneCount]Plane: the five culling planes
func (f Frustum) CullingPlanes() [CullingPlaneCount]Plane {
	return [CullingPlaneCount]Plane{
		f.Planes[FrustumNear],
		f.Planes[FrustumLeft],
		f.Planes[FrustumRight],
		f.Planes[FrustumBottom],
		f.Planes[FrustumTop],
	}
}

// ContainsSphere reports whether a sphere is not entirely outside any of the five
// culling planes. A sphere that exactly touches a plane is kept.
//
// Parameters:
//   - center: sphere center in the frustum's space
//   - radius: sphere radius
//
// Returns:
//   - bool: true if the sphere may be visible
func (f Frustum) ContainsSphere(center mgl32.Vec3, radius float32) bool {
	for _, p := range f.CullingPlanes() {
		if p.SignedDistance(center) < -radius {
			return false
		}
	}
	return true
}

// planeFromRow builds a normalized plane from a clip-space row combination.
func planeFromRow(row mgl32.Vec4) Plane {
	p := Plane{
		Normal:   row.Vec3(),
		Distance: row[3],
	}
	length := p.Normal.Len()
	if length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.Distance *= invLen
	}
	return p
}
