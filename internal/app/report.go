package app

import (
	"fmt"

	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/sparkline"
)

func plural(n float64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// writeReport prints the request summary, the applied strategy, selection
// warnings and, when enabled, the layout, quality and discard charts.
func (s *Service) writeReport(table *selection.ScoreTable, res *selection.Result) {
	s.printf("Requested %d out of %d images (%.1f%%, 1 in %.1f).\n",
		res.Target, res.Candidates, res.Ratio*100, res.Split)

	for _, w := range res.Warnings {
		s.printf("Warning: %s\n", w)
	}

	switch res.Strategy {
	case selection.StrategyUngrouped:
		s.printf("Running ungrouped. This may cause an uneven distribution of data.\n")
	default:
		if res.Strategy == selection.StrategyTwoPass {
			s.printf("Using two-pass grouping (potentially better distribution, possibly slightly worse quality).\n")
		}
		s.printf("Selecting %d %s across %d %s, with total ~%.1f %s per group and selecting ~%.1f %s per group (scalar %d).\n",
			res.Target, plural(float64(res.Target), "image"),
			res.GroupCount, plural(float64(res.GroupCount), "group"),
			res.IdealGroupSize, plural(res.IdealGroupSize, "image"),
			res.IdealAllotment, plural(res.IdealAllotment, "image"),
			res.Scalar)
	}

	bins := s.cfg.SparklineBins
	if bins <= 0 {
		return
	}
	s.printf("\n")
	if res.Strategy != selection.StrategyUngrouped {
		s.chart("Group layout", sparkline.GroupLayout(res.GroupCount), bins)
	}
	ids := make([]string, table.Len())
	for i := range ids {
		ids[i] = table.At(i).ID
	}
	s.chart("Distribution of images discarded (%)", sparkline.DiscardSeries(ids, res.Set()), bins)
	s.chart("Distribution of image quality", table.Scores(), bins)
}

func (s *Service) chart(title string, values []float64, bins int) {
	if s.cfg.SparklineColor {
		s.printf("%s:\n [%s]\n", title, sparkline.RenderColor(values, bins, s.cfg.Gradient()))
		return
	}
	s.printf("%s", sparkline.Format(title, values, bins))
}

// summary returns "Retained N sharpest images." with the right plural.
func summary(verb string, n int) string {
	return fmt.Sprintf("%s %d sharpest %s.", verb, n, plural(float64(n), "image"))
}
