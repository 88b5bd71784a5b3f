// Package decision turns per-frame detections into one segment-level
// decision: a face count, a small set of representative boxes and a display
// mode.
package decision

// AggregateFaceCount returns the most frequent per-frame face count.
//
// Ties go to the largest count: cutting a two-person scene down to one
// centered subject is the worse mistake. An empty input, or a plurality of
// empty frames, yields fallback.
func AggregateFaceCount(counts []int, fallback int) int {
	if len(counts) == 0 {
		return fallback
	}

	freq := make(map[int]int, len(counts))
	for _, c := range counts {
		if c < 0 {
			continue
		}
		freq[c]++
	}

	best, bestFreq := -1, 0
	for count, n := range freq {
		if n > bestFreq || (n == bestFreq && count > best) {
			best, bestFreq = count, n
		}
	}

	if best <= 0 {
		return fallback
	}
	return best
}
