package cluster

import (
	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
	"github.com/go-gl/mathgl/mgl32"
)

// cullPlanes holds the five view-space culling planes broadcast into lanes.
type cullPlanes struct {
	nx, ny, nz, d [common.CullingPlaneCount]common.Float4
}

func newCullPlanes(proj mgl32.Mat4) cullPlanes {
	return cullPlanesFrom(common.ExtractFrustumFromMatrix(proj).CullingPlanes())
}

func cullPlanesFrom(planes [common.CullingPlaneCount]common.Plane) cullPlanes {
	var cp cullPlanes
	for i, p := range planes {
		cp.nx[i] = common.Splat(p.Normal[0])
		cp.ny[i] = common.Splat(p.Normal[1])
		cp.nz[i] = common.Splat(p.Normal[2])
		cp.d[i] = common.Splat(p.Distance)
	}
	return cp
}

// viewTransform is the affine part of a view matrix broadcast into lanes.
type viewTransform [3][4]common.Float4

func newViewTransform(view mgl32.Mat4) viewTransform {
	var vt viewTransform
	for row := range 3 {
		for col := range 4 {
			vt[row][col] = common.Splat(view.At(row, col))
		}
	}
	return vt
}

// apply transforms four points into view space.
func (vt *viewTransform) apply(x, y, z common.Float4) (vx, vy, vz common.Float4) {
	vx = vt[0][0].MulAdd(x, vt[0][1].MulAdd(y, vt[0][2].MulAdd(z, vt[0][3])))
	vy = vt[1][0].MulAdd(x, vt[1][1].MulAdd(y, vt[1][2].MulAdd(z, vt[1][3])))
	vz = vt[2][0].MulAdd(x, vt[2][1].MulAdd(y, vt[2][2].MulAdd(z, vt[2][3])))
	return
}

// enabledMask packs four enabled flags into a lane mask.
func enabledMask(flags []bool, i int) common.Mask4 {
	_ = flags[i+3]
	var m common.Mask4
	for lane := range common.LaneWidth {
		if flags[i+lane] {
			m |= 1 << lane
		}
	}
	return m
}

// cullRange tests spheres [start, end) against the planes four at a time and writes
// the survivors to out, returning how many were written. start must be a multiple of
// common.LaneWidth; out must hold at least end-start entries. Depths are left zero.
//
// A sphere is rejected when its signed distance to any inward-facing plane is below
// -radius, so spheres that exactly touch a plane survive.
func cullRange(s *light.SphereSoA, vt *viewTransform, cp *cullPlanes, start, end int, out []CulledLightEntry) int {
	n := 0
	for i := start; i < end; i += common.LaneWidth {
		vx, vy, vz := vt.apply(common.Load4(s.X, i), common.Load4(s.Y, i), common.Load4(s.Z, i))
		negR := common.Load4(s.R, i).Neg()

		var reject common.Mask4
		for p := range common.CullingPlaneCount {
			dist := cp.nx[p].MulAdd(vx, cp.ny[p].MulAdd(vy, cp.nz[p].MulAdd(vz, cp.d[p])))
			reject = reject.Or(dist.Less(negR))
		}

		keep := reject.Not().And(enabledMask(s.Enabled, i)).And(common.FirstN(s.Len() - i))
		if !keep.Any() {
			continue
		}
		for lane := range common.LaneWidth {
			if keep.Lane(lane) {
				out[n] = CulledLightEntry{OriginalIndex: uint32(i + lane)}
				n++
			}
		}
	}
	return n
}

// cullAll is the single-threaded culler over the whole registry view. It appends
// survivors to out[:0] and returns the result.
func cullAll(view light.View, frame common.FrameView, out []CulledLightEntry) []CulledLightEntry {
	s := view.Spheres()
	vt := newViewTransform(frame.View)
	cp := newCullPlanes(frame.Projection)
	out = out[:s.Padded()]
	n := cullRange(s, &vt, &cp, 0, s.Padded(), out)
	return out[:n]
}
