package exam

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FormatRanges compacts integers into maximal contiguous runs:
// [1,2,3,5,7,8] renders as "1–3; 5; 7–8". Duplicates are dropped and
// the empty set renders as "".
func FormatRanges(nums []int) string {
	if len(nums) == 0 {
		return ""
	}
	uniq := make([]int, 0, len(nums))
	seen := make(map[int]bool, len(nums))
	for _, n := range nums {
		if !seen[n] {
			seen[n] = true
			uniq = append(uniq, n)
		}
	}
	sort.Ints(uniq)

	var parts []string
	start, end := uniq[0], uniq[0]
	flush := func() {
		if start == end {
			parts = append(parts, fmt.Sprintf("%d", start))
		} else {
			parts = append(parts, fmt.Sprintf("%d–%d", start, end))
		}
	}
	for _, n := range uniq[1:] {
		if n == end+1 {
			end = n
			continue
		}
		flush()
		start, end = n, n
	}
	flush()
	return strings.Join(parts, "; ")
}

// RoundToStep rounds x to the nearest multiple of step (0.25 for exam
// points under TT27 practice). Idempotent; a non-positive step returns
// x unchanged.
func RoundToStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return math.Round(x/step) * step
}
