package sparkline

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Gradient colors glyphs by level, blending from Low to High in CIE-L*a*b*.
type Gradient struct {
	Low  colorful.Color
	High colorful.Color
}

// Default gradient ends: a muted blue for blurry, a warm amber for sharp.
const (
	DefaultLow  = "#4a6fa5"
	DefaultHigh = "#f2a541"
)

// DefaultGradient runs from DefaultLow to DefaultHigh.
var DefaultGradient = Gradient{
	Low:  mustHex(DefaultLow),
	High: mustHex(DefaultHigh),
}

// ParseGradient builds a gradient from two "#rrggbb" colors.
func ParseGradient(low, high string) (Gradient, error) {
	lo, err := colorful.Hex(low)
	if err != nil {
		return Gradient{}, fmt.Errorf("invalid low color %q: %w", low, err)
	}
	hi, err := colorful.Hex(high)
	if err != nil {
		return Gradient{}, fmt.Errorf("invalid high color %q: %w", high, err)
	}
	return Gradient{Low: lo, High: hi}, nil
}

// At returns the gradient color for a level in [0, MaxLevel].
func (g Gradient) At(level int) colorful.Color {
	t := float64(level) / float64(MaxLevel)
	return g.Low.BlendLab(g.High, t).Clamped()
}

// RenderColor renders like Render but wraps every glyph in a 24-bit ANSI
// foreground escape taken from g.
func RenderColor(values []float64, bins int, g Gradient) string {
	levels := Levels(values, bins)
	if len(levels) == 0 {
		return ""
	}

	var b strings.Builder
	for _, l := range levels {
		r, gr, bl := g.At(l).RGB255()
		fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm%c", r, gr, bl, Glyph(l))
	}
	b.WriteString("\x1b[0m")
	return b.String()
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
