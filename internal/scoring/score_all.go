package scoring

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/metrics"
	"github.com/ironsheep/sharp-frames/internal/selection"
)

type batch struct {
	workers  int
	progress io.Writer
	logger   logger.Logger
	metrics  *metrics.Manager
	ids      func(path string) string
}

// Option configures ScoreAll.
type Option func(*batch)

// WithWorkers bounds the number of images scored concurrently.
func WithWorkers(n int) Option {
	return func(b *batch) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithProgress draws a progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(b *batch) {
		b.progress = w
	}
}

// WithLogger sets the logger used for per-image debug output.
func WithLogger(l logger.Logger) Option {
	return func(b *batch) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records scoring counts and latencies on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(b *batch) {
		if m != nil {
			b.metrics = m
		}
	}
}

// WithIDs derives the table identifier of each path. Paths are used as-is by
// default.
func WithIDs(fn func(path string) string) Option {
	return func(b *batch) {
		if fn != nil {
			b.ids = fn
		}
	}
}

// ScoreAll scores every path and returns a ScoreTable in input order.
//
// Parameters:
//   - ctx: cancels outstanding work
//   - paths: candidate images, in sequence order
//   - scorer: computes each score
//
// Returns an error if any image fails to score, if ctx is cancelled, or if
// two paths map to the same identifier.
func ScoreAll(ctx context.Context, paths []string, scorer Scorer, opts ...Option) (*selection.ScoreTable, error) {
	b := &batch{
		workers: runtime.NumCPU(),
		logger:  logger.Nop(),
		ids:     func(path string) string { return path },
	}
	for _, opt := range opts {
		opt(b)
	}

	var bar *pb.ProgressBar
	if b.progress != nil {
		bar = pb.Full.New(len(paths))
		bar.SetWriter(b.progress)
		bar.Start()
		defer bar.Finish()
	}

	images := make([]selection.ScoredImage, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			score, err := safeScore(gctx, scorer, path)
			if err != nil {
				if b.metrics != nil {
					b.metrics.RecordScoringError()
				}
				return err
			}
			if b.metrics != nil {
				b.metrics.RecordImageScored(time.Since(start).Seconds())
			}
			b.logger.Debug(gctx, "image scored",
				logger.String("path", path),
				logger.Float64("score", score),
			)
			images[i] = selection.ScoredImage{Score: score, ID: b.ids(path)}
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	return selection.NewScoreTable(images)
}

// safeScore runs scorer on one path, reporting a panic (a malformed image
// tripping a decoder, say) as an error instead of taking the process down.
func safeScore(ctx context.Context, scorer Scorer, path string) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = 0, fmt.Errorf("%s: scorer panicked: %v", path, r)
		}
	}()
	return scorer.Score(ctx, path)
}
