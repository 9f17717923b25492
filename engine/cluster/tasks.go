package cluster

import (
	"time"

	"github.com/Carmen-Shannon/oxy-cluster/common"
	"github.com/Carmen-Shannon/oxy-cluster/engine/light"
)

// Minimum work per chunk before a stage is split across workers.
const (
	minCullLanesPerChunk = 64
	minBinsPerChunk      = 8
)

// frameState is the data one frame threads through the task graph. Only the driver
// goroutine and the pool tasks of the current frame touch it.
type frameState struct {
	frame        uint64
	view         common.FrameView
	regView      light.View
	entries      []CulledLightEntry
	furthestBack float32
	binWidth     float32
	counts       Counts
	stats        FrameStats
}

// cullTask culls the registry against the frustum and computes depth extents for
// the survivors. Chunks write into disjoint windows of scratch and are then
// concatenated in chunk order.
type cullTask struct {
	e           *engineImpl
	scratch     []CulledLightEntry
	chunkCounts []int
}

func newCullTask(e *engineImpl) *cullTask {
	return &cullTask{
		e:           e,
		scratch:     make([]CulledLightEntry, common.PadToLanes(e.maxLights)),
		chunkCounts: make([]int, e.workers),
	}
}

func (t *cullTask) run(st *frameState) {
	start := time.Now()
	spheres := st.regView.Spheres()
	padded := spheres.Padded()
	lanes := padded / common.LaneWidth

	chunks := t.e.chunksFor(lanes, minCullLanesPerChunk)
	chunkLen := common.CeilDiv(max(lanes, 1), chunks) * common.LaneWidth

	vt := newViewTransform(st.view.View)
	cp := newCullPlanes(st.view.Projection)
	t.e.parallel(chunks, func(c int) {
		lo := c * chunkLen
		hi := min(lo+chunkLen, padded)
		if lo >= hi {
			t.chunkCounts[c] = 0
			return
		}
		window := t.scratch[lo:hi]
		n := cullRange(spheres, &vt, &cp, lo, hi, window)
		computeExtents(st.regView, st.view.View, window[:n])
		t.chunkCounts[c] = n
	})

	st.entries = st.entries[:0]
	for c := range chunks {
		lo := c * chunkLen
		st.entries = append(st.entries, t.scratch[lo:lo+t.chunkCounts[c]]...)
	}

	st.stats.Lights = st.regView.Len()
	st.stats.Survivors = len(st.entries)
	st.stats.Cull = time.Since(start)
}

// sortTask orders the survivors by FrontDepth and records the furthest back depth.
type sortTask struct {
	e      *engineImpl
	sorter *depthSorter
}

func newSortTask(e *engineImpl) *sortTask {
	return &sortTask{e: e, sorter: newDepthSorter(common.PadToLanes(e.maxLights), e.workers)}
}

func (t *sortTask) run(st *frameState) {
	start := time.Now()
	st.furthestBack = t.sorter.sort(st.entries, t.e.minFurthestBack, t.e.parallel)
	st.binWidth = st.furthestBack / float32(t.e.binCount)
	st.stats.Sort = time.Since(start)
}

// fillTask writes the sorted GPU light buffer and index lists and publishes the
// counts to the recording thread.
type fillTask struct {
	e      *engineImpl
	filler *bufferFiller
}

func newFillTask(e *engineImpl) *fillTask {
	return &fillTask{e: e, filler: newBufferFiller(e.maxLights)}
}

func (t *fillTask) run(st *frameState) {
	start := time.Now()
	counts := t.filler.fill(st.regView, st.entries, st.frame)
	counts.Result.View = st.view
	st.counts = counts
	st.stats.Point, st.stats.Spot = counts.Point, counts.Spot
	st.stats.Fill = time.Since(start)
	t.e.handoff.Publish(counts)
}

// binTask builds the Z-bins over [0, furthestBack] in parallel chunks of bins.
type binTask struct {
	e    *engineImpl
	bins []ZBin
}

func newBinTask(e *engineImpl) *binTask {
	return &binTask{e: e, bins: make([]ZBin, e.binCount)}
}

func (t *binTask) run(st *frameState) {
	start := time.Now()
	count := len(t.bins)
	chunks := t.e.chunksFor(count, minBinsPerChunk)
	per := common.CeilDiv(count, chunks)
	t.e.parallel(chunks, func(c int) {
		lo := c * per
		hi := min(lo+per, count)
		if lo < hi {
			buildZBins(st.entries, t.bins, st.binWidth, lo, hi)
		}
	})
	st.stats.Bin = time.Since(start)
}
