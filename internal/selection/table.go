package selection

import (
	"fmt"
	"sort"
)

// ScoredImage is one candidate with its sharpness score.
type ScoredImage struct {
	// Score is the sharpness proxy; higher is sharper.
	Score float64 `json:"score"`

	// ID identifies the image, typically its path.
	ID string `json:"id"`
}

// ScoreTable is an immutable, ordered collection of scored candidates.
//
// The zero value is not usable; build tables with NewScoreTable.
type ScoreTable struct {
	images   []ScoredImage
	position map[string]int
}

// NewScoreTable copies images into a new table, preserving their order.
//
// The identifier to position index used by two-pass selection is built here,
// once, so later lookups are O(1).
//
// # Errors
//
//   - ErrEmptyTable if images is empty
//   - ErrDuplicateID if two entries share an ID
func NewScoreTable(images []ScoredImage) (*ScoreTable, error) {
	if len(images) == 0 {
		return nil, ErrEmptyTable
	}

	t := &ScoreTable{
		images:   make([]ScoredImage, len(images)),
		position: make(map[string]int, len(images)),
	}
	copy(t.images, images)

	for i, img := range t.images {
		if prev, ok := t.position[img.ID]; ok {
			return nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateID, img.ID, prev, i)
		}
		t.position[img.ID] = i
	}

	return t, nil
}

// Len returns the number of candidates.
func (t *ScoreTable) Len() int {
	return len(t.images)
}

// At returns the candidate at sequence position i.
func (t *ScoreTable) At(i int) ScoredImage {
	return t.images[i]
}

// Position returns the sequence position of id.
func (t *ScoreTable) Position(id string) (int, bool) {
	i, ok := t.position[id]
	return i, ok
}

// Images returns a copy of the candidates in sequence order.
func (t *ScoreTable) Images() []ScoredImage {
	out := make([]ScoredImage, len(t.images))
	copy(out, t.images)
	return out
}

// Scores returns the scores in sequence order.
func (t *ScoreTable) Scores() []float64 {
	out := make([]float64, len(t.images))
	for i, img := range t.images {
		out[i] = img.Score
	}
	return out
}

// rankedPositions returns the positions in [start, end) ordered by score,
// sharpest first, ties on earlier position.
func (t *ScoreTable) rankedPositions(start, end int) []int {
	if start < 0 {
		start = 0
	}
	if end > len(t.images) {
		end = len(t.images)
	}
	if start >= end {
		return nil
	}

	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		sa, sb := t.images[idx[a]].Score, t.images[idx[b]].Score
		if sa != sb {
			return sa > sb
		}
		return idx[a] < idx[b]
	})
	return idx
}
