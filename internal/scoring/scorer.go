package scoring

import (
	"context"
	"fmt"

	"github.com/ironsheep/sharp-frames/internal/imaging"
)

// Scorer computes the sharpness of the image at path.
type Scorer interface {
	Score(ctx context.Context, path string) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, path string) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, path string) (float64, error) {
	return f(ctx, path)
}

// ImageScorer scores image files with one metric and one preprocessing setup.
type ImageScorer struct {
	Metric  imaging.Metric
	Prepare imaging.PrepareOptions
}

// NewImageScorer creates an ImageScorer.
func NewImageScorer(m imaging.Metric, opts imaging.PrepareOptions) *ImageScorer {
	return &ImageScorer{Metric: m, Prepare: opts}
}

// Score loads the file at path and returns its sharpness.
func (s *ImageScorer) Score(ctx context.Context, path string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	score, err := imaging.ScoreFile(path, s.Metric, s.Prepare)
	if err != nil {
		return 0, fmt.Errorf("score %s: %w", path, err)
	}
	return score, nil
}
