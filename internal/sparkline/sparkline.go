// Package sparkline renders fixed-width block-glyph charts of numeric series
// for terminal reports.
//
// Any input length maps onto a fixed number of bins: longer inputs are
// averaged in contiguous chunks, shorter inputs are stretched by repeating
// each value bins/len times and padding with the last value. Values are then
// quantized onto eight glyph levels between the series minimum and maximum.
//
// Rendering never fails. Flat input draws the tallest glyph everywhere and
// empty input draws the lowest.
package sparkline

import (
	"fmt"
	"math"
	"strings"
)

// MaxLevel is the highest quantization level.
const MaxLevel = 7

// MaxBins caps the width of a chart. Larger requests are clamped.
const MaxBins = 10000

// glyphs are the quantization levels, lowest first.
var glyphs = [MaxLevel + 1]rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Glyph returns the block glyph for a level, clamped to [0, MaxLevel].
func Glyph(level int) rune {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return glyphs[level]
}

func clampBins(bins int) int {
	if bins > MaxBins {
		return MaxBins
	}
	return bins
}

// Bin maps values onto exactly bins values (at most MaxBins).
//
// Inputs of exactly bins values are copied unchanged. Longer inputs are split
// into bins contiguous chunks of len(values)/bins (the last chunk runs to the
// end) and each chunk is averaged. Shorter inputs repeat every value
// bins/len(values) times and pad the tail with the last value.
func Bin(values []float64, bins int) []float64 {
	bins = clampBins(bins)
	if bins <= 0 || len(values) == 0 {
		return nil
	}

	out := make([]float64, 0, bins)
	switch {
	case len(values) == bins:
		out = append(out, values...)

	case len(values) > bins:
		size := float64(len(values)) / float64(bins)
		for i := 0; i < bins; i++ {
			start := int(float64(i) * size)
			end := int(float64(i+1) * size)
			if i == bins-1 {
				end = len(values)
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out = append(out, sum/float64(end-start))
		}

	default:
		reps := bins / len(values)
		for _, v := range values {
			for r := 0; r < reps; r++ {
				out = append(out, v)
			}
		}
		last := values[len(values)-1]
		for len(out) < bins {
			out = append(out, last)
		}
	}
	return out
}

// Levels quantizes values into bins levels in [0, MaxLevel].
//
// level = round((v-min)/(max-min)*MaxLevel), halves rounding to even. A flat
// series is treated as if its minimum were one lower, which puts every bin at
// MaxLevel. Empty input yields bins zero levels.
func Levels(values []float64, bins int) []int {
	bins = clampBins(bins)
	if bins <= 0 {
		return nil
	}
	levels := make([]int, bins)

	binned := Bin(values, bins)
	if len(binned) == 0 {
		return levels
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range binned {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo--
	}

	for i, v := range binned {
		l := math.RoundToEven((v - lo) / (hi - lo) * float64(MaxLevel))
		if math.IsNaN(l) {
			l = 0
		}
		levels[i] = int(math.Max(0, math.Min(float64(MaxLevel), l)))
	}
	return levels
}

// Render returns a sparkline of exactly bins glyphs (at most MaxBins), or ""
// when bins <= 0.
func Render(values []float64, bins int) string {
	var b strings.Builder
	for _, l := range Levels(values, bins) {
		b.WriteRune(Glyph(l))
	}
	return b.String()
}

// Format renders values under a title, bracketed, as the report blocks do:
//
//	Distribution of image quality:
//	 [▁▂▃▅▇█▇▅]
func Format(title string, values []float64, bins int) string {
	return fmt.Sprintf("%s:\n [%s]\n", title, Render(values, bins))
}
