package cluster

import (
	"cmp"
	"slices"
)

// DefaultMinFurthestBack is the smallest depth range the Z-bins ever cover.
const DefaultMinFurthestBack float32 = 20

// parallelSortThreshold is the entry count below which sorting runs on one goroutine.
const parallelSortThreshold = 2048

// parallelFunc runs fn(i) for every i in [0, n) and returns once all calls finished.
type parallelFunc func(n int, fn func(i int))

// serial is a parallelFunc that runs everything on the calling goroutine.
func serial(n int, fn func(i int)) {
	for i := range n {
		fn(i)
	}
}

func byFrontDepth(a, b CulledLightEntry) int {
	return cmp.Compare(a.FrontDepth, b.FrontDepth)
}

// depthSorter orders culled entries by ascending FrontDepth. Large inputs are split
// into chunks sorted concurrently and then merged pairwise, round by round, through
// a scratch buffer reused across frames. The sort is not stable.
type depthSorter struct {
	scratch  []CulledLightEntry
	runs     [][2]int
	next     [][2]int
	chunkMax []float32
	chunks   int
}

func newDepthSorter(capacity, chunks int) *depthSorter {
	chunks = max(chunks, 1)
	return &depthSorter{
		scratch:  make([]CulledLightEntry, capacity),
		runs:     make([][2]int, 0, chunks),
		next:     make([][2]int, 0, chunks),
		chunkMax: make([]float32, chunks),
		chunks:   chunks,
	}
}

// sort orders entries in place and returns the largest BackDepth, floored at minBack.
func (s *depthSorter) sort(entries []CulledLightEntry, minBack float32, par parallelFunc) float32 {
	n := len(entries)
	if n < parallelSortThreshold || s.chunks == 1 {
		slices.SortFunc(entries, byFrontDepth)
		return max(furthestBack(entries), minBack)
	}

	chunkSize := (n + s.chunks - 1) / s.chunks
	s.runs = s.runs[:0]
	for start := 0; start < n; start += chunkSize {
		s.runs = append(s.runs, [2]int{start, min(start+chunkSize, n)})
	}

	runs := s.runs
	par(len(runs), func(i int) {
		chunk := entries[runs[i][0]:runs[i][1]]
		slices.SortFunc(chunk, byFrontDepth)
		s.chunkMax[i] = furthestBack(chunk)
	})
	back := minBack
	for i := range runs {
		back = max(back, s.chunkMax[i])
	}

	src, dst := entries, s.scratch[:n]
	for len(s.runs) > 1 {
		runs := s.runs
		pairs := (len(runs) + 1) / 2
		par(pairs, func(p int) {
			a := runs[2*p]
			if 2*p+1 == len(runs) {
				copy(dst[a[0]:a[1]], src[a[0]:a[1]])
				return
			}
			b := runs[2*p+1]
			mergeRuns(dst[a[0]:b[1]], src[a[0]:a[1]], src[b[0]:b[1]])
		})

		s.next = s.next[:0]
		for p := range pairs {
			lo := runs[2*p][0]
			hi := runs[min(2*p+1, len(runs)-1)][1]
			s.next = append(s.next, [2]int{lo, hi})
		}
		s.runs, s.next = s.next, s.runs
		src, dst = dst, src
	}

	if &src[0] != &entries[0] {
		copy(entries, src)
	}
	return back
}

// mergeRuns merges two sorted runs into dst, which must be len(a)+len(b) long.
func mergeRuns(dst, a, b []CulledLightEntry) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if b[j].FrontDepth < a[i].FrontDepth {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}

func furthestBack(entries []CulledLightEntry) float32 {
	back := float32(0)
	for i := range entries {
		back = max(back, entries[i].BackDepth)
	}
	return back
}
