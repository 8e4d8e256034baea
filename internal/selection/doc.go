// Package selection chooses a sharpness-ranked subset of an ordered image
// sequence while keeping the retained images spread evenly along it.
//
// The input is a ScoreTable: one ScoredImage per candidate, in acquisition
// order (frame number, capture time, or any caller-supplied ordering key).
// Order is load-bearing. Grouping relies on neighbouring entries being
// neighbours in time or space.
//
// # Strategies
//
// Select picks one of three strategies:
//
//   - Ungrouped: the targetCount highest scores overall, ignoring position.
//   - Grouped: the table is cut into contiguous windows and every window keeps
//     a share of the target proportional to its size.
//   - Two-pass grouped: grouped selection is repeated on windows shifted by
//     half a window and the two picks of every group are reconciled by
//     position.
//
// The choice is driven by the split ratio len(table)/targetCount. Below 2
// there are too few candidates per retained slot for windows to help, so the
// ungrouped strategy is used unless grouping is forced.
//
// # Determinism
//
// Every sort in this package breaks score ties on sequence position (earlier
// wins), so identical inputs always yield identical results.
//
// # Thread Safety
//
// ScoreTable is immutable after construction and safe for concurrent reads.
// Select and Distribute are pure functions.
package selection
