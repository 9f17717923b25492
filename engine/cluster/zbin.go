package cluster

// DefaultBinCount is the number of depth slices when WithBinCount is not given.
const DefaultBinCount = 64

// binIndex maps a view depth to its bin. Depths at or behind the camera fall in the
// first bin and depths past the last edge in the last one. Lookup and build both go
// through here so a depth is always found in the bin that listed it.
func binIndex(depth, width float32, count int) int {
	if depth <= 0 || width <= 0 {
		return 0
	}
	q := depth / width
	if q >= float32(count-1) {
		return count - 1
	}
	return int(q)
}

// buildZBins fills bins[start:end] from entries sorted by ascending FrontDepth.
//
// Entry i covers bins binIndex(front) through binIndex(back); each of those bins
// records the lowest and highest i that covers it. Fronts ascend, so the scan stops
// at the first entry whose first bin lies past end.
func buildZBins(entries []CulledLightEntry, bins []ZBin, width float32, start, end int) {
	for b := start; b < end; b++ {
		bins[b] = EmptyZBin
	}
	for i := range entries {
		e := &entries[i]
		lo := binIndex(e.FrontDepth, width, len(bins))
		if lo >= end {
			break
		}
		hi := binIndex(e.BackDepth, width, len(bins))
		for b := max(lo, start); b <= min(hi, end-1); b++ {
			bins[b].MinIndex = min(bins[b].MinIndex, uint32(i))
			bins[b].MaxIndex = uint32(i)
		}
	}
}
