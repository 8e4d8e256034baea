package selection

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
)

// makeTable builds a table whose IDs are "frame-%03d" in sequence order.
func makeTable(t *testing.T, scores []float64) *ScoreTable {
	t.Helper()
	images := make([]ScoredImage, len(scores))
	for i, s := range scores {
		images[i] = ScoredImage{Score: s, ID: fmt.Sprintf("frame-%03d", i)}
	}
	table, err := NewScoreTable(images)
	if err != nil {
		t.Fatalf("NewScoreTable failed: %v", err)
	}
	return table
}

func randomScores(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = rng.Float64() * 1000
	}
	return scores
}

func positionsOf(t *testing.T, table *ScoreTable, res *Result) []int {
	t.Helper()
	out := make([]int, len(res.Selected))
	for i, img := range res.Selected {
		p, ok := table.Position(img.ID)
		if !ok {
			t.Fatalf("selected id %q not in table", img.ID)
		}
		out[i] = p
	}
	return out
}

func TestNewScoreTable(t *testing.T) {
	table := makeTable(t, []float64{3, 1, 2})

	if table.Len() != 3 {
		t.Errorf("Len: got %d, want 3", table.Len())
	}
	if got := table.At(1); got.ID != "frame-001" || got.Score != 1 {
		t.Errorf("At(1): got %+v", got)
	}
	if p, ok := table.Position("frame-002"); !ok || p != 2 {
		t.Errorf("Position(frame-002): got %d, %v", p, ok)
	}
	if _, ok := table.Position("missing"); ok {
		t.Error("Position(missing) should not be found")
	}
	if !reflect.DeepEqual(table.Scores(), []float64{3, 1, 2}) {
		t.Errorf("Scores: got %v", table.Scores())
	}
}

func TestNewScoreTable_Errors(t *testing.T) {
	if _, err := NewScoreTable(nil); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("empty: got %v, want ErrEmptyTable", err)
	}

	dup := []ScoredImage{{1, "a"}, {2, "b"}, {3, "a"}}
	if _, err := NewScoreTable(dup); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: got %v, want ErrDuplicateID", err)
	}
}

func TestNewScoreTable_CopiesInput(t *testing.T) {
	images := []ScoredImage{{1, "a"}, {2, "b"}}
	table, err := NewScoreTable(images)
	if err != nil {
		t.Fatalf("NewScoreTable failed: %v", err)
	}
	images[0].Score = 99

	if table.At(0).Score != 1 {
		t.Error("table should not share the caller's slice")
	}
}

func TestResolveGroupCount(t *testing.T) {
	tests := []struct {
		name   string
		target int
		opts   Options
		want   int
	}{
		{"default scalar", 10, Options{}, 10},
		{"scalar 1", 10, Options{Scalar: 1}, 10},
		{"scalar 2 halves", 10, Options{Scalar: 2}, 5},
		{"scalar 3 quarters", 10, Options{Scalar: 3}, 2},
		{"scalar floors to one", 3, Options{Scalar: 5}, 1},
		{"huge scalar", 10, Options{Scalar: 200}, 1},
		{"explicit groups win", 10, Options{GroupCount: 4, Scalar: 3}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveGroupCount(tt.target, tt.opts)
			if err != nil {
				t.Fatalf("ResolveGroupCount failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelect_Errors(t *testing.T) {
	table := makeTable(t, randomScores(1, 20))

	tests := []struct {
		name   string
		target int
		opts   Options
		want   error
	}{
		{"zero target", 0, Options{}, ErrInvalidTarget},
		{"negative target", -3, Options{}, ErrInvalidTarget},
		{"target above candidates", 21, Options{}, ErrInvalidTarget},
		{"both force flags", 5, Options{ForceGrouped: true, ForceUngrouped: true}, ErrConflictingOptions},
		{"negative groups", 5, Options{GroupCount: -1}, ErrDegenerateGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Select(table, tt.target, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Error("no partial result expected on error")
			}
		})
	}

	if _, err := Select(nil, 1, Options{}); !errors.Is(err, ErrEmptyTable) {
		t.Errorf("nil table: got %v, want ErrEmptyTable", err)
	}
}

func TestSelect_DecileScenario(t *testing.T) {
	scores := randomScores(42, 100)
	table := makeTable(t, scores)

	res, err := Select(table, 10, Options{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if res.Strategy != StrategyGrouped {
		t.Errorf("Strategy: got %s, want grouped", res.Strategy)
	}
	if res.Split != 10 {
		t.Errorf("Split: got %v, want 10", res.Split)
	}
	if res.GroupCount != 10 {
		t.Errorf("GroupCount: got %d, want 10", res.GroupCount)
	}
	if len(res.Selected) != 10 {
		t.Fatalf("selected: got %d, want 10", len(res.Selected))
	}

	for i, p := range positionsOf(t, table, res) {
		if p/10 != i {
			t.Errorf("pick %d at position %d is outside decile %d", i, p, i)
		}
		for q := i * 10; q < i*10+10; q++ {
			if scores[q] > scores[p] {
				t.Errorf("decile %d: position %d (%.2f) is sharper than pick %d (%.2f)", i, q, scores[q], p, scores[p])
			}
		}
	}
}

func TestSelect_UngroupedScenario(t *testing.T) {
	scores := randomScores(7, 100)
	table := makeTable(t, scores)

	res, err := Select(table, 60, Options{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if res.Strategy != StrategyUngrouped {
		t.Fatalf("Strategy: got %s, want ungrouped", res.Strategy)
	}
	if len(res.Warnings) == 0 {
		t.Error("automatic fallback should be reported as a warning")
	}
	if len(res.Selected) != 60 {
		t.Fatalf("selected: got %d, want 60", len(res.Selected))
	}

	minIncluded := res.Selected[0].Score
	for _, img := range res.Selected {
		minIncluded = min(minIncluded, img.Score)
	}
	set := res.Set()
	for i, s := range scores {
		id := fmt.Sprintf("frame-%03d", i)
		if _, ok := set[id]; !ok && s > minIncluded {
			t.Errorf("excluded %s (%.2f) scores above the weakest included (%.2f)", id, s, minIncluded)
		}
	}
}

func TestSelect_SplitBoundary(t *testing.T) {
	table := makeTable(t, randomScores(3, 20))

	res, err := Select(table, 10, Options{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Split != 2 {
		t.Fatalf("Split: got %v, want 2", res.Split)
	}
	if res.Strategy != StrategyGrouped {
		t.Errorf("split of exactly 2 should group, got %s", res.Strategy)
	}

	res, err = Select(table, 11, Options{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Strategy != StrategyUngrouped {
		t.Errorf("split below 2 should not group, got %s", res.Strategy)
	}
}

func TestSelect_ForceFlags(t *testing.T) {
	table := makeTable(t, randomScores(11, 30))

	res, err := Select(table, 5, Options{ForceUngrouped: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Strategy != StrategyUngrouped {
		t.Errorf("ForceUngrouped: got %s", res.Strategy)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("forced ungrouped should not warn, got %v", res.Warnings)
	}

	res, err = Select(table, 20, Options{ForceGrouped: true, TwoPass: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Strategy != StrategyGrouped {
		t.Errorf("ForceGrouped below split 2 should run a single grouped pass, got %s", res.Strategy)
	}
	if len(res.Warnings) < 2 {
		t.Errorf("expected forced-grouping and two-pass warnings, got %v", res.Warnings)
	}
	if len(res.Selected) != 20 {
		t.Errorf("selected: got %d, want 20", len(res.Selected))
	}
}

func TestSelect_ExactCountAcrossCombinations(t *testing.T) {
	for n := 1; n <= 40; n++ {
		table := makeTable(t, randomScores(int64(n), n))
		for target := 1; target <= n; target++ {
			for _, groups := range []int{0, 1, 3, target, n, n + 5} {
				for _, opts := range []Options{
					{GroupCount: groups},
					{GroupCount: groups, ForceGrouped: true},
					{GroupCount: groups, TwoPass: true},
					{GroupCount: groups, TwoPass: true, ForceGrouped: true},
					{GroupCount: groups, Scalar: 2},
				} {
					res, err := Select(table, target, opts)
					if err != nil {
						t.Fatalf("n=%d target=%d opts=%+v: %v", n, target, opts, err)
					}
					if len(res.Selected) != target {
						t.Fatalf("n=%d target=%d opts=%+v: got %d images", n, target, opts, len(res.Selected))
					}
					if len(res.Set()) != target {
						t.Fatalf("n=%d target=%d opts=%+v: duplicate picks", n, target, opts)
					}
				}
			}
		}
	}
}

func TestSelect_AllotmentsFollowWindows(t *testing.T) {
	table := makeTable(t, randomScores(5, 60))

	res, err := Select(table, 12, Options{GroupCount: 4})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !reflect.DeepEqual(res.GroupSizes, []int{15, 15, 15, 15}) {
		t.Errorf("GroupSizes: got %v", res.GroupSizes)
	}
	if !reflect.DeepEqual(res.Allotments, []int{3, 3, 3, 3}) {
		t.Errorf("Allotments: got %v", res.Allotments)
	}

	perWindow := make([]int, 4)
	for _, p := range positionsOf(t, table, res) {
		perWindow[p/15]++
	}
	if !reflect.DeepEqual(perWindow, []int{3, 3, 3, 3}) {
		t.Errorf("picks per window: got %v", perWindow)
	}
}

func TestSelect_SequenceOrder(t *testing.T) {
	table := makeTable(t, randomScores(9, 50))

	for _, opts := range []Options{{}, {TwoPass: true}, {ForceUngrouped: true}} {
		res, err := Select(table, 7, opts)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		pos := positionsOf(t, table, res)
		for i := 1; i < len(pos); i++ {
			if pos[i] <= pos[i-1] {
				t.Errorf("opts %+v: selection not in sequence order: %v", opts, pos)
				break
			}
		}
	}
}

func TestSelect_Idempotent(t *testing.T) {
	table := makeTable(t, randomScores(13, 80))

	for _, opts := range []Options{{}, {TwoPass: true}, {Scalar: 2}, {ForceUngrouped: true}} {
		first, err := Select(table, 16, opts)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		second, err := Select(table, 16, opts)
		if err != nil {
			t.Fatalf("Select failed: %v", err)
		}
		if !reflect.DeepEqual(first, second) {
			t.Errorf("opts %+v: results differ between runs", opts)
		}
	}
}

func TestSelect_TiesPreferEarlierPosition(t *testing.T) {
	table := makeTable(t, []float64{5, 5, 5, 5, 5, 5})

	res, err := Select(table, 2, Options{ForceUngrouped: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !reflect.DeepEqual(res.IDs(), []string{"frame-000", "frame-001"}) {
		t.Errorf("ungrouped ties: got %v", res.IDs())
	}

	res, err = Select(table, 2, Options{})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !reflect.DeepEqual(res.IDs(), []string{"frame-000", "frame-003"}) {
		t.Errorf("grouped ties: got %v", res.IDs())
	}
}

func TestSelect_TwoPass(t *testing.T) {
	// Windows of 4: [0..3] [4..7] [8..11]; shifted windows start at 2.
	scores := []float64{1, 2, 3, 9, 8, 1, 1, 1, 1, 7, 1, 1}
	table := makeTable(t, scores)

	res, err := Select(table, 3, Options{TwoPass: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Strategy != StrategyTwoPass {
		t.Fatalf("Strategy: got %s, want two-pass", res.Strategy)
	}
	if res.GroupCount != 3 || len(res.Selected) != 3 {
		t.Fatalf("got %d groups and %d picks, want 3 and 3", res.GroupCount, len(res.Selected))
	}

	// Each pair is equidistant from its own midpoint, so the unshifted pick
	// is kept.
	want := []string{"frame-003", "frame-004", "frame-009"}
	if !reflect.DeepEqual(res.IDs(), want) {
		t.Errorf("got %v, want %v", res.IDs(), want)
	}
}

func TestSelect_TwoPassMultipleAllotment(t *testing.T) {
	table := makeTable(t, randomScores(21, 90))

	res, err := Select(table, 9, Options{TwoPass: true, Scalar: 2})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.Strategy != StrategyTwoPass {
		t.Fatalf("Strategy: got %s", res.Strategy)
	}
	if !reflect.DeepEqual(res.Allotments, []int{2, 2, 2, 3}) {
		t.Errorf("Allotments: got %v", res.Allotments)
	}
	if len(res.Selected) != 9 {
		t.Errorf("selected: got %d, want 9", len(res.Selected))
	}
}

func TestCloserToMidpoint(t *testing.T) {
	table := makeTable(t, randomScores(1, 10))

	if got := closerToMidpoint(table, "frame-002", "frame-006"); got != 2 {
		t.Errorf("tie should keep first candidate, got %d", got)
	}
	if got := closerToMidpoint(table, "frame-005", "frame-005"); got != 5 {
		t.Errorf("identical candidates: got %d", got)
	}
}

func TestSelect_ClampsGroupCount(t *testing.T) {
	table := makeTable(t, []float64{1, 9, 3, 7, 5})

	res, err := Select(table, 4, Options{GroupCount: 8, ForceGrouped: true})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if res.GroupCount != 5 {
		t.Errorf("GroupCount: got %d, want 5", res.GroupCount)
	}
	if len(res.Selected) != 4 {
		t.Fatalf("selected: got %d, want 4", len(res.Selected))
	}
	if len(res.Warnings) < 2 {
		t.Errorf("expected forced-grouping and clamp warnings, got %v", res.Warnings)
	}
}

func TestSelect_HugeGroupCount(t *testing.T) {
	table := makeTable(t, []float64{1, 2, 3, 4})

	for _, opts := range []Options{
		{GroupCount: 1 << 50},
		{GroupCount: 1 << 50, ForceGrouped: true},
		{GroupCount: 1 << 50, TwoPass: true, ForceGrouped: true},
		{GroupCount: 1 << 50, ForceUngrouped: true},
	} {
		res, err := Select(table, 1, opts)
		if err != nil {
			t.Fatalf("opts=%+v: %v", opts, err)
		}
		if len(res.Selected) != 1 {
			t.Errorf("opts=%+v: got %d images, want 1", opts, len(res.Selected))
		}
		if res.GroupCount > table.Len() {
			t.Errorf("opts=%+v: GroupCount %d exceeds candidates", opts, res.GroupCount)
		}
	}
}

func TestSelect_TwoPassMatchesGrouped(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		table := makeTable(t, randomScores(seed, 20+int(seed)*3))
		for _, scalar := range []int{1, 2, 3} {
			target := table.Len() / 4
			grouped, err := Select(table, target, Options{Scalar: scalar})
			if err != nil {
				t.Fatalf("grouped: %v", err)
			}
			twoPass, err := Select(table, target, Options{Scalar: scalar, TwoPass: true})
			if err != nil {
				t.Fatalf("two-pass: %v", err)
			}
			if !reflect.DeepEqual(twoPass.IDs(), grouped.IDs()) {
				t.Errorf("seed=%d scalar=%d: two-pass %v, grouped %v", seed, scalar, twoPass.IDs(), grouped.IDs())
			}
			if len(twoPass.Warnings) == 0 {
				t.Errorf("seed=%d scalar=%d: expected a note that two-pass changed nothing", seed, scalar)
			}
		}
	}
}
