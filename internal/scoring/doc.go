// Package scoring turns candidate image files into a selection.ScoreTable.
//
// # Scorers
//
// A Scorer maps an image path to a sharpness score. ImageScorer reads the
// file and applies an imaging metric; Cache wraps any Scorer and remembers
// results until the file's size or modification time changes.
//
// # Batch scoring
//
// ScoreAll scores many paths on a bounded number of goroutines. Results keep
// the input order regardless of completion order, so the returned table is in
// sequence order. The first failure cancels the remaining work.
package scoring
