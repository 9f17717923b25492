package cluster

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overlaps reports whether entry e belongs in bin b under the lookup depth mapping.
func overlaps(e CulledLightEntry, b, count int, width float32) bool {
	return binIndex(e.FrontDepth, width, count) <= b && b <= binIndex(e.BackDepth, width, count)
}

// depthSamples returns the ends of [front, back], their neighbouring floats inside
// the interval and a few interior points.
func depthSamples(front, back float32) []float32 {
	out := []float32{front, back}
	if back > front {
		out = append(out, math.Nextafter32(front, back), math.Nextafter32(back, front))
	}
	for k := 1; k < 8; k++ {
		out = append(out, front+(back-front)*float32(k)/8)
	}
	return out
}

func TestBuildZBins_Coverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	for trial := range 20 {
		entries := randomEntries(rng, 50+trial*40)
		slices.SortFunc(entries, byFrontDepth)
		furthest := max(furthestBack(entries), DefaultMinFurthestBack)

		out := &FrameOutput{Bins: make([]ZBin, DefaultBinCount)}
		out.BinWidth = furthest / float32(len(out.Bins))
		buildZBins(entries, out.Bins, out.BinWidth, 0, len(out.Bins))

		for i, e := range entries {
			for _, d := range depthSamples(e.FrontDepth, e.BackDepth) {
				b := out.BinFor(d)
				require.Truef(t, out.Bins[b].Contains(uint32(i)),
					"trial %d: entry %d [%v,%v] missing from bin %d at depth %v", trial, i, e.FrontDepth, e.BackDepth, b, d)
			}
		}
	}
}

func TestBuildZBins_LookupAtBinEdges(t *testing.T) {
	// A back depth one float below a bin edge can divide into the next bin; the
	// builder must list the entry wherever BinFor sends that depth.
	rng := rand.New(rand.NewPCG(21, 22))
	for trial := range 5000 {
		count := 1 + rng.IntN(128)
		width := 0.01 + rng.Float32()*10
		b := 1 + rng.IntN(count)
		d := math.Nextafter32(float32(b)*width, 0)
		entries := []CulledLightEntry{{OriginalIndex: 0, FrontDepth: d - 1, BackDepth: d}}

		out := &FrameOutput{Bins: make([]ZBin, count), BinWidth: width}
		buildZBins(entries, out.Bins, width, 0, count)

		require.Truef(t, out.Bins[out.BinFor(d)].Contains(0),
			"trial %d: count %d width %v depth %v", trial, count, width, d)
	}
}

func TestBinIndex(t *testing.T) {
	tests := []struct {
		name  string
		depth float32
		width float32
		want  int
	}{
		{"behind camera", -3, 2, 0},
		{"at camera", 0, 2, 0},
		{"inside first bin", 1.5, 2, 0},
		{"on an edge", 4, 2, 2},
		{"last bin", 7.9, 2, 3},
		{"past the far edge", 100, 2, 3},
		{"infinite depth", float32(math.Inf(1)), 2, 3},
		{"zero width", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binIndex(tt.depth, tt.width, 4))
		})
	}
}

func TestBuildZBins_EntryStartingInsideBin(t *testing.T) {
	// An early exit on front > binFront would skip entry 1, whose front lies inside
	// bin 1, and leave bin 1 empty.
	entries := []CulledLightEntry{
		{OriginalIndex: 0, FrontDepth: 2, BackDepth: 4},
		{OriginalIndex: 1, FrontDepth: 12, BackDepth: 13},
		{OriginalIndex: 2, FrontDepth: 14, BackDepth: 35},
	}
	bins := make([]ZBin, 4)
	buildZBins(entries, bins, 10, 0, len(bins))

	assert.Equal(t, ZBin{0, 0}, bins[0])
	assert.Equal(t, ZBin{1, 2}, bins[1])
	assert.Equal(t, ZBin{2, 2}, bins[2])
	assert.Equal(t, ZBin{2, 2}, bins[3])
}

func TestBuildZBins_SkipsEntriesEndingBeforeBin(t *testing.T) {
	entries := []CulledLightEntry{
		{OriginalIndex: 0, FrontDepth: 1, BackDepth: 2},
		{OriginalIndex: 1, FrontDepth: 3, BackDepth: 50},
		{OriginalIndex: 2, FrontDepth: 4, BackDepth: 5},
	}
	bins := make([]ZBin, 5)
	buildZBins(entries, bins, 10, 0, len(bins))

	assert.Equal(t, ZBin{0, 2}, bins[0])
	for b := 1; b < 5; b++ {
		assert.Equal(t, ZBin{1, 1}, bins[b], "bin %d", b)
	}
}

func TestBuildZBins_EmptyAndBehindCamera(t *testing.T) {
	bins := make([]ZBin, 8)
	buildZBins(nil, bins, 2.5, 0, len(bins))
	for _, b := range bins {
		assert.Equal(t, EmptyZBin, b)
		assert.True(t, b.Empty())
	}

	behind := []CulledLightEntry{{OriginalIndex: 0, FrontDepth: -9, BackDepth: -1}}
	buildZBins(behind, bins, 2.5, 0, len(bins))
	assert.Equal(t, ZBin{0, 0}, bins[0])
	for _, b := range bins[1:] {
		assert.True(t, b.Empty())
	}
}

func TestBuildZBins_ChunkedMatchesWhole(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	entries := randomEntries(rng, 400)
	slices.SortFunc(entries, byFrontDepth)
	width := max(furthestBack(entries), DefaultMinFurthestBack) / 64

	whole := make([]ZBin, 64)
	buildZBins(entries, whole, width, 0, 64)

	chunked := make([]ZBin, 64)
	goParallel(8, func(c int) {
		buildZBins(entries, chunked, width, c*8, c*8+8)
	})
	assert.Equal(t, whole, chunked)
}
