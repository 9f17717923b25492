package light

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Default proxy tessellation. Coarse meshes are fine because the vertices are
// pushed outwards until every face lies outside the shape they stand in for.
const (
	DefaultSphereRings    = 8
	DefaultSphereSegments = 12
	DefaultConeSegments   = 12
)

// ProxyVertexStride is the byte stride of one proxy vertex (vec3<f32>).
const ProxyVertexStride = 12

// ProxyMesh is the fixed geometry drawn once per surviving light when rasterizing
// light coverage into screen tiles. Instances are placed and scaled in the vertex
// shader from the light records.
type ProxyMesh struct {
	Vertices []mgl32.Vec3
	Indices  []uint32
}

// IndexCount returns the number of indices to draw per instance.
func (m ProxyMesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

// VertexBytes serializes the vertices as tightly packed little-endian vec3<f32>.
//
// Returns:
//   - []byte: len(Vertices) × 12 bytes
func (m ProxyMesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*ProxyVertexStride)
	for i, v := range m.Vertices {
		off := i * ProxyVertexStride
		for c := range 3 {
			binary.LittleEndian.PutUint32(buf[off+c*4:off+c*4+4], math.Float32bits(v[c]))
		}
	}
	return buf
}

// IndexBytes serializes the indices as little-endian uint32.
//
// Returns:
//   - []byte: len(Indices) × 4 bytes
func (m ProxyMesh) IndexBytes() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], idx)
	}
	return buf
}

// SphereProxy builds a UV sphere that encloses the unit sphere. Point lights draw it
// scaled by their radius.
//
// Parameters:
//   - rings: latitude bands (at least 3)
//   - segments: longitude slices (at least 3)
//
// Returns:
//   - ProxyMesh: the sphere mesh
func SphereProxy(rings, segments int) ProxyMesh {
	rings = max(rings, 3)
	segments = max(segments, 3)

	// A face of the tessellation sits at least cos(π/rings)·cos(π/segments) from the
	// center; scaling by the inverse keeps the unit sphere inside.
	scale := 1 / float32(math.Cos(math.Pi/float64(rings))*math.Cos(math.Pi/float64(segments)))

	var m ProxyMesh
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		y := float32(math.Cos(phi))
		ring := float32(math.Sin(phi))
		for s := 0; s <= segments; s++ {
			theta := 2 * math.Pi * float64(s) / float64(segments)
			x := ring * float32(math.Cos(theta))
			z := ring * float32(math.Sin(theta))
			m.Vertices = append(m.Vertices, mgl32.Vec3{x, y, z}.Mul(scale))
		}
	}

	stride := uint32(segments + 1)
	for r := range uint32(rings) {
		for s := range uint32(segments) {
			a := r*stride + s
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return m
}

// ConeProxy builds a cone with its apex at the origin opening along +Z: a rim ring
// of radius 1 at z = 1 and a single cap vertex at z = 2. The vertex shader maps the
// rim onto the outer cutoff circle at the light length and the cap vertex onto the
// axis at the light length.
//
// Parameters:
//   - segments: slices around the axis (at least 3)
//
// Returns:
//   - ProxyMesh: the cone mesh
func ConeProxy(segments int) ProxyMesh {
	segments = max(segments, 3)
	scale := 1 / float32(math.Cos(math.Pi/float64(segments)))

	m := ProxyMesh{Vertices: []mgl32.Vec3{{0, 0, 0}}}
	for s := range segments {
		theta := 2 * math.Pi * float64(s) / float64(segments)
		m.Vertices = append(m.Vertices, mgl32.Vec3{
			float32(math.Cos(theta)) * scale,
			float32(math.Sin(theta)) * scale,
			1,
		})
	}
	tip := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, mgl32.Vec3{0, 0, 2})

	n := uint32(segments)
	for s := range n {
		cur := 1 + s
		next := 1 + (s+1)%n
		m.Indices = append(m.Indices, 0, next, cur)   // side
		m.Indices = append(m.Indices, tip, cur, next) // cap
	}
	return m
}
