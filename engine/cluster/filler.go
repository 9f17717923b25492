package cluster

import (
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
)

// bufferFiller owns the per-frame GPU-facing light buffers. Every slice is sized to
// the registry capacity once and reused.
type bufferFiller struct {
	result FillResult
}

func newBufferFiller(capacity int) *bufferFiller {
	return &bufferFiller{
		result: FillResult{
			Records:      make([]byte, 0, capacity*light.GPULightSize),
			Spheres:      make([]light.BoundingSphere, 0, capacity),
			PointIndices: make([]uint32, 0, capacity),
			SpotIndices:  make([]uint32, 0, capacity),
		},
	}
}

// fill walks the sorted entries once, writing each light's record in sorted order
// and appending its sorted index to the list of its type. The returned Counts point
// at the filler's result, which stays untouched until the next fill.
func (f *bufferFiller) fill(view light.View, entries []CulledLightEntry, frame uint64) Counts {
	res := &f.result
	res.Frame = frame
	res.Entries = entries
	res.Records = res.Records[:len(entries)*light.GPULightSize]
	res.Spheres = res.Spheres[:len(entries)]
	res.PointIndices = res.PointIndices[:0]
	res.SpotIndices = res.SpotIndices[:0]

	spheres := view.Spheres()
	for k := range entries {
		idx := int(entries[k].OriginalIndex)
		rec := view.Record(idx)
		rec.MarshalInto(res.Records[k*light.GPULightSize:])
		res.Spheres[k] = light.BoundingSphere{
			Center: [3]float32{spheres.X[idx], spheres.Y[idx], spheres.Z[idx]},
			Radius: spheres.R[idx],
		}

		if light.LightType(rec.LightType) == light.LightTypeSpot {
			res.SpotIndices = append(res.SpotIndices, uint32(k))
		} else {
			res.PointIndices = append(res.PointIndices, uint32(k))
		}
	}

	return Counts{
		Frame:  frame,
		Point:  uint32(len(res.PointIndices)),
		Spot:   uint32(len(res.SpotIndices)),
		Result: res,
	}
}
