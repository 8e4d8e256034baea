package sparkline

// DiscardSeries returns 100 for every id missing from kept and 0 otherwise,
// in the order of ids. Binned, it shows the share of discarded images along
// the sequence as a percentage.
func DiscardSeries(ids []string, kept map[string]struct{}) []float64 {
	out := make([]float64, len(ids))
	for i, id := range ids {
		if _, ok := kept[id]; !ok {
			out[i] = 100
		}
	}
	return out
}

// GroupLayout returns an alternating 0/1 series with one entry per group,
// which renders window boundaries as a square wave.
func GroupLayout(groups int) []float64 {
	if groups < 0 {
		groups = 0
	}
	out := make([]float64, groups)
	for i := range out {
		out[i] = float64(i % 2)
	}
	return out
}
