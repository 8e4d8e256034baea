package selection

import (
	"fmt"
	"math"
	"sort"
)

// Strategy names the selection method actually applied.
type Strategy string

const (
	StrategyUngrouped Strategy = "ungrouped"
	StrategyGrouped   Strategy = "grouped"
	StrategyTwoPass   Strategy = "two-pass"
)

// minGroupedSplit is the smallest candidates-per-slot ratio at which grouping
// is chosen automatically.
const minGroupedSplit = 2.0

// Options tune how Select partitions the table.
type Options struct {
	// GroupCount fixes the number of windows. Zero derives it from Scalar.
	GroupCount int `json:"group_count,omitempty"`

	// Scalar coarsens the derived group count: targetCount / 2^(Scalar-1).
	// Values below 1 behave as 1 (one group per retained image).
	Scalar int `json:"scalar,omitempty"`

	// TwoPass reconciles a second pass over half-window shifted groups.
	TwoPass bool `json:"two_pass,omitempty"`

	// ForceGrouped groups even when the split ratio is below 2.
	ForceGrouped bool `json:"force_grouped,omitempty"`

	// ForceUngrouped always takes the global top-K.
	ForceUngrouped bool `json:"force_ungrouped,omitempty"`
}

// Result is the outcome of Select.
type Result struct {
	// Selected holds exactly Target images in sequence order.
	Selected []ScoredImage `json:"selected"`

	Strategy   Strategy `json:"strategy"`
	Candidates int      `json:"candidates"`
	Target     int      `json:"target"`

	// Split is Candidates/Target; Ratio is its inverse.
	Split float64 `json:"split"`
	Ratio float64 `json:"ratio"`

	// Grouping details; zero for the ungrouped strategy.
	Scalar         int     `json:"scalar,omitempty"`
	GroupCount     int     `json:"group_count,omitempty"`
	GroupSizes     []int   `json:"group_sizes,omitempty"`
	Allotments     []int   `json:"allotments,omitempty"`
	IdealGroupSize float64 `json:"ideal_group_size,omitempty"`
	IdealAllotment float64 `json:"ideal_allotment,omitempty"`

	// Warnings are caller-visible notes about degraded or overridden behavior.
	Warnings []string `json:"warnings,omitempty"`
}

// IDs returns the selected identifiers in sequence order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Selected))
	for i, img := range r.Selected {
		ids[i] = img.ID
	}
	return ids
}

// Set returns the selected identifiers as a set.
func (r *Result) Set() map[string]struct{} {
	set := make(map[string]struct{}, len(r.Selected))
	for _, img := range r.Selected {
		set[img.ID] = struct{}{}
	}
	return set
}

func (r *Result) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ResolveGroupCount returns the number of windows Select would use.
//
// An explicit GroupCount wins. Otherwise the count is
// max(1, target / 2^(Scalar-1)).
func ResolveGroupCount(target int, opts Options) (int, error) {
	if opts.GroupCount < 0 {
		return 0, fmt.Errorf("%w: %d groups requested", ErrDegenerateGroup, opts.GroupCount)
	}
	if opts.GroupCount > 0 {
		return opts.GroupCount, nil
	}

	shift := effectiveScalar(opts.Scalar) - 1
	groups := 0
	if shift < 62 {
		groups = target >> uint(shift)
	}
	if groups < 1 {
		groups = 1
	}
	return groups, nil
}

func effectiveScalar(scalar int) int {
	if scalar < 1 {
		return 1
	}
	return scalar
}

// Select chooses targetCount images from table.
//
// # Strategy
//
// With split = table.Len()/targetCount, the ungrouped strategy runs when
// split < 2 (unless ForceGrouped) or when ForceUngrouped is set. Otherwise the
// grouped strategy runs, as two passes when TwoPass is set and split >= 2.
// A split of exactly 2 is grouped. A group count above table.Len() is
// clamped to table.Len() with a warning, since every window would otherwise
// be empty past that point.
//
// # Errors
//
//   - ErrConflictingOptions if both force flags are set
//   - ErrInvalidTarget if targetCount <= 0 or targetCount > table.Len()
//   - ErrDegenerateGroup if GroupCount is negative
//
// No partial result is returned on error.
func Select(table *ScoreTable, targetCount int, opts Options) (*Result, error) {
	if opts.ForceGrouped && opts.ForceUngrouped {
		return nil, fmt.Errorf("%w: cannot force both grouped and ungrouped selection", ErrConflictingOptions)
	}
	if table == nil || table.Len() == 0 {
		return nil, ErrEmptyTable
	}

	n := table.Len()
	if targetCount <= 0 || targetCount > n {
		return nil, fmt.Errorf("%w: %d requested from %d candidates", ErrInvalidTarget, targetCount, n)
	}

	groups, err := ResolveGroupCount(targetCount, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Candidates: n,
		Target:     targetCount,
		Split:      float64(n) / float64(targetCount),
		Ratio:      float64(targetCount) / float64(n),
	}

	if opts.ForceUngrouped || (res.Split < minGroupedSplit && !opts.ForceGrouped) {
		if !opts.ForceUngrouped {
			res.warnf("ratio is < %.0f, falling back to ungrouped selection", minGroupedSplit)
		}
		if opts.TwoPass {
			res.warnf("two-pass has no effect on ungrouped selection")
		}
		res.Strategy = StrategyUngrouped
		res.Selected = collect(table, selectUngrouped(table, targetCount))
		return res, nil
	}

	twoPass := opts.TwoPass
	if res.Split < minGroupedSplit {
		res.warnf("forcibly grouping despite a ratio of %.2f; groups may hold fewer images than their allotment", res.Split)
		if twoPass {
			res.warnf("two-pass needs a ratio of at least %.0f, using a single pass", minGroupedSplit)
			twoPass = false
		}
	}

	if groups > n {
		res.warnf("%d groups requested for %d candidates, using %d", groups, n, n)
		groups = n
	}

	sizes, idealSize, err := Distribute(n, groups)
	if err != nil {
		return nil, err
	}
	allot, idealAllot, err := Distribute(targetCount, groups)
	if err != nil {
		return nil, err
	}

	res.Scalar = effectiveScalar(opts.Scalar)
	res.GroupCount = groups
	res.GroupSizes = sizes
	res.Allotments = allot
	res.IdealGroupSize = idealSize
	res.IdealAllotment = idealAllot

	var picked []int
	if twoPass {
		res.Strategy = StrategyTwoPass
		picked = selectTwoPass(table, sizes, allot)
		if samePositions(picked, selectGrouped(table, sizes, allot)) {
			res.warnf("two-pass kept every first-pass pick, the result matches single-pass grouping")
		}
	} else {
		res.Strategy = StrategyGrouped
		picked = selectGrouped(table, sizes, allot)
	}

	if short := targetCount - len(picked); short > 0 {
		res.warnf("%d group slot(s) could not be filled from their window, back-filled with the sharpest remaining images", short)
		picked = backfill(table, picked, targetCount)
	}

	res.Selected = collect(table, picked)
	return res, nil
}

// selectUngrouped returns the positions of the target highest scores.
func selectUngrouped(t *ScoreTable, target int) []int {
	return t.rankedPositions(0, t.Len())[:target]
}

// pickWindows ranks every window (sizes laid out from shift) and keeps up to
// allot[i] positions from window i, sharpest first.
func pickWindows(t *ScoreTable, sizes, allot []int, shift int) [][]int {
	starts := offsets(sizes, shift)
	picks := make([][]int, len(sizes))
	for i, size := range sizes {
		ranked := t.rankedPositions(starts[i], starts[i]+size)
		if len(ranked) > allot[i] {
			ranked = ranked[:allot[i]]
		}
		picks[i] = ranked
	}
	return picks
}

func selectGrouped(t *ScoreTable, sizes, allot []int) []int {
	var out []int
	for _, group := range pickWindows(t, sizes, allot, 0) {
		out = append(out, group...)
	}
	return out
}

// selectTwoPass runs the grouped pass twice, the second with windows shifted
// forward by half the first window, and reconciles the j-th pick of every
// group by position: the candidate nearer the midpoint of the pair is kept,
// ties keep the unshifted pick.
func selectTwoPass(t *ScoreTable, sizes, allot []int) []int {
	passA := pickWindows(t, sizes, allot, 0)
	passB := pickWindows(t, sizes, allot, sizes[0]/2)

	chosen := make(map[int]bool)
	var out []int
	keep := func(pos int) {
		chosen[pos] = true
		out = append(out, pos)
	}

	for i := range sizes {
		for j := 0; j < allot[i]; j++ {
			a, hasA := nth(passA[i], j)
			b, hasB := nth(passB[i], j)
			hasA = hasA && !chosen[a]
			hasB = hasB && !chosen[b]

			switch {
			case hasA && hasB:
				keep(closerToMidpoint(t, t.At(a).ID, t.At(b).ID))
			case hasA:
				keep(a)
			case hasB:
				keep(b)
			}
		}
	}
	return out
}

// closerToMidpoint resolves both identifiers to sequence positions and returns
// the position nearer their midpoint, preferring a on a tie.
func closerToMidpoint(t *ScoreTable, a, b string) int {
	pa, _ := t.Position(a)
	pb, _ := t.Position(b)
	mid := float64(pa+pb) / 2
	if math.Abs(float64(pb)-mid) < math.Abs(float64(pa)-mid) {
		return pb
	}
	return pa
}

// samePositions reports whether a and b hold the same positions in any order.
func samePositions(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		if !seen[p] {
			return false
		}
	}
	return true
}

func nth(s []int, j int) (int, bool) {
	if j < len(s) {
		return s[j], true
	}
	return 0, false
}

// backfill tops picked up to target with the sharpest unpicked positions.
func backfill(t *ScoreTable, picked []int, target int) []int {
	seen := make(map[int]bool, len(picked))
	for _, p := range picked {
		seen[p] = true
	}
	for _, p := range t.rankedPositions(0, t.Len()) {
		if len(picked) >= target {
			break
		}
		if !seen[p] {
			seen[p] = true
			picked = append(picked, p)
		}
	}
	return picked
}

// collect maps positions to images in sequence order.
func collect(t *ScoreTable, positions []int) []ScoredImage {
	sorted := append([]int(nil), positions...)
	sort.Ints(sorted)
	out := make([]ScoredImage, len(sorted))
	for i, p := range sorted {
		out[i] = t.At(p)
	}
	return out
}
