package cluster

import (
	"errors"
	"math"
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
)

// ErrClosed is returned by blocking calls once the engine has been closed.
var ErrClosed = errors.New("cluster: engine closed")

// ErrNoFrame is returned by Wait when no frame has been started.
var ErrNoFrame = errors.New("cluster: no frame in flight")

// CulledLightEntry is one light that survived frustum culling, with its conservative
// view-depth interval. FrontDepth never exceeds BackDepth.
type CulledLightEntry struct {
	// OriginalIndex is the light's index in the registry view of this frame.
	OriginalIndex uint32
	FrontDepth    float32
	BackDepth     float32
}

// ZBin is an inclusive range of sorted-entry indices whose depth intervals overlap
// one depth slice. An empty bin is EmptyZBin.
type ZBin struct {
	MinIndex uint32
	MaxIndex uint32
}

// EmptyZBin marks a depth slice no light touches. MinIndex > MaxIndex so a shader
// loop over [MinIndex, MaxIndex] runs zero times.
var EmptyZBin = ZBin{MinIndex: math.MaxUint32, MaxIndex: 0}

// Empty reports whether the bin holds no lights.
func (b ZBin) Empty() bool { return b.MinIndex > b.MaxIndex }

// Contains reports whether sorted index i falls inside the bin's range.
func (b ZBin) Contains(i uint32) bool { return !b.Empty() && i >= b.MinIndex && i <= b.MaxIndex }

// FillResult is the read-only product of the buffer filler for one frame. Every
// slice is owned by the engine and stays valid until the next Begin.
type FillResult struct {
	// Frame is the frame number this result belongs to.
	Frame uint64
	// View is the camera state the frame was clustered with.
	View common.FrameView
	// Entries are the surviving lights sorted by ascending FrontDepth.
	Entries []CulledLightEntry
	// Records holds one marshaled light.GPULight per entry, in sorted order.
	Records []byte
	// Spheres holds each entry's world-space bounding sphere, in sorted order.
	Spheres []light.BoundingSphere
	// PointIndices and SpotIndices list sorted-entry indices per light type.
	PointIndices []uint32
	SpotIndices  []uint32
}

// Indices returns the sorted-entry index list for a light type.
func (r *FillResult) Indices(kind light.LightType) []uint32 {
	if kind == light.LightTypeSpot {
		return r.SpotIndices
	}
	return r.PointIndices
}

// Counts is what the filler hands to the command-recording thread: the number of
// surviving lights of each type plus the fill data to draw from.
type Counts struct {
	Frame  uint64
	Point  uint32
	Spot   uint32
	Result *FillResult
}

// Of returns the count for a light type.
func (c Counts) Of(kind light.LightType) uint32 {
	if kind == light.LightTypeSpot {
		return c.Spot
	}
	return c.Point
}

// Total returns Point + Spot.
func (c Counts) Total() uint32 { return c.Point + c.Spot }

// FrameStats records per-stage timings and sizes of one clustering frame.
type FrameStats struct {
	Frame     uint64
	Lights    int
	Survivors int
	Point     uint32
	Spot      uint32
	Cull      time.Duration
	Sort      time.Duration
	Fill      time.Duration
	Bin       time.Duration
	Total     time.Duration
}

// FrameOutput is everything the GPU side needs for one frame. It stays valid until
// the next Begin.
type FrameOutput struct {
	*FillResult

	// Bins covers [0, FurthestBack] in BinCount equal slices.
	Bins         []ZBin
	BinWidth     float32
	FurthestBack float32
	Tiles        TileGrid
	Uniforms     GPUClusterUniforms
	Stats        FrameStats
}

// BinFor returns the bin index for a view depth, clamped to the bin range.
//
// Parameters:
//   - depth: the view-space forward distance
//
// Returns:
//   - int: the bin index
func (o *FrameOutput) BinFor(depth float32) int {
	return binIndex(depth, o.BinWidth, len(o.Bins))
}
