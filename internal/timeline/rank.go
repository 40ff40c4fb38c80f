package timeline

import (
	"cmp"
	"math"
	"sort"
)

// nearestRankIndex converts a percentile fraction p into an index for a
// sequence of length n using the nearest-rank method: round((n-1)*p).
// Rounding is math.Round on the fractional rank, so the index always names
// an existing element and never interpolates between two ranks.
func nearestRankIndex(n int, p float64) int {
	return int(math.Round(float64(n-1) * p))
}

// valueAtPercentile selects the nearest-rank percentile p from a slice
// sorted in ascending order. The slice must be non-empty.
func valueAtPercentile[T cmp.Ordered](sorted []T, p float64) T {
	return sorted[nearestRankIndex(len(sorted), p)]
}

// firstAbove returns the index of the first element strictly greater than
// limit in a slice sorted in ascending order, or -1 when no element exceeds
// it. Elements equal to limit do not qualify.
func firstAbove[T cmp.Ordered](sorted []T, limit T) int {
	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] > limit })
	if idx == len(sorted) {
		return -1
	}
	return idx
}

// countAbove counts the elements strictly greater than limit in a slice
// sorted in ascending order. The no-exceedance sentinel from firstAbove maps
// to zero.
func countAbove[T cmp.Ordered](sorted []T, limit T) int {
	idx := firstAbove(sorted, limit)
	if idx < 0 {
		return 0
	}
	return len(sorted) - idx
}
