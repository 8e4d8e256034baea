package selection

import "fmt"

// Distribute splits total units across groups with minimal rounding error.
//
// Every group gets floor(total/groups). The fractional remainder is carried
// from group to group, and whenever the carry reaches a whole unit the current
// group gets one extra. The carry is tracked in integer arithmetic
// (total%groups against groups), so sum(sizes) == total holds exactly for any
// magnitude, and sizes differ by at most one.
//
// Returns:
//   - sizes: one entry per group, in order.
//   - ideal: the unrounded per-group share total/groups, for reporting.
//   - error: ErrDegenerateGroup if groups < 1 or total < 0.
//
// Example: Distribute(10, 4) returns [2 3 2 3] and 2.5.
func Distribute(total, groups int) ([]int, float64, error) {
	if groups < 1 {
		return nil, 0, fmt.Errorf("%w: %d groups", ErrDegenerateGroup, groups)
	}
	if total < 0 {
		return nil, 0, fmt.Errorf("%w: negative total %d", ErrDegenerateGroup, total)
	}

	base := total / groups
	rem := total % groups
	sizes := make([]int, groups)

	carry := 0
	for i := range sizes {
		sizes[i] = base
		carry += rem
		if carry >= groups {
			sizes[i]++
			carry -= groups
		}
	}

	return sizes, float64(total) / float64(groups), nil
}

// offsets returns the start position of every group for the given sizes,
// shifted by shift.
func offsets(sizes []int, shift int) []int {
	starts := make([]int, len(sizes))
	pos := shift
	for i, size := range sizes {
		starts[i] = pos
		pos += size
	}
	return starts
}
