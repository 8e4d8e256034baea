package app

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/ironsheep/sharp-frames/internal/config"
	"github.com/ironsheep/sharp-frames/internal/extract"
	"github.com/ironsheep/sharp-frames/internal/imaging"
	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/metrics"
	"github.com/ironsheep/sharp-frames/internal/scoring"
	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/transforms"
)

// Request describes one selection job.
type Request struct {
	// Input is a directory of images or a video file.
	Input string

	// Transforms is a transforms.json file or the directory holding it.
	// Exactly one of Input and Transforms is set.
	Transforms string

	// OutputDir receives retained images. For directory input, empty or equal
	// to Input means discarded images are deleted in place. Required for
	// video input, where it receives the extracted frames.
	OutputDir string

	// OutputFile is where the filtered transforms document is written.
	// Empty means transforms_filtered.json beside the input document.
	OutputFile string

	// TargetCount or TargetPercentage (0, 100] sizes the selection.
	// Exactly one is set.
	TargetCount      int
	TargetPercentage float64

	Selection selection.Options

	// Pretend reports what would happen without touching any file.
	Pretend bool

	// Yes skips every confirmation.
	Yes bool
}

// Outcome summarizes a finished job.
type Outcome struct {
	RunID string

	// Candidates are the scored image paths in sequence order.
	Candidates []string

	Result *selection.Result

	// Copied and Deleted count file operations performed.
	Copied  int
	Deleted int

	// TransformsFile is the filtered document written, if any.
	TransformsFile string
}

type inputKind int

const (
	inputDirectory inputKind = iota
	inputVideo
	inputTransforms
)

// Service runs selection jobs.
type Service struct {
	cfg       *config.Config
	scorer    scoring.Scorer
	extractor extract.FrameExtractor
	confirmer Confirmer
	metrics   *metrics.Manager
	report    io.Writer
	progress  io.Writer
	logger    logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer replaces the image scorer built from the configuration.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithExtractor replaces the ffmpeg frame extractor.
func WithExtractor(e extract.FrameExtractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithConfirmer sets how destructive steps are approved. The default declines.
func WithConfirmer(c Confirmer) Option {
	return func(s *Service) {
		if c != nil {
			s.confirmer = c
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithReport sets the writer for the human-readable report.
func WithReport(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.report = w
		}
	}
}

// WithProgress sets the writer for the scoring progress bar. The bar is drawn
// only when the configuration enables it.
func WithProgress(w io.Writer) Option {
	return func(s *Service) {
		s.progress = w
	}
}

// New creates a Service from cfg.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}
	s := &Service{
		cfg:       cfg,
		confirmer: Decline,
		metrics:   metrics.Default(),
		report:    io.Discard,
		logger:    logger.Get().Named("app"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scorer == nil {
		s.scorer = scoring.NewImageScorer(cfg.SharpnessMetric(), cfg.PrepareOptions())
	}
	if s.extractor == nil {
		s.extractor = &extract.FFmpeg{
			Binary:  cfg.FFmpegPath,
			Pattern: cfg.FramePattern,
			Logger:  s.logger.Named("extract"),
		}
	}
	return s
}

// Run executes req.
//
// Parameters:
//   - ctx: cancels extraction and scoring
//   - req: the job to run
//
// Returns the outcome, or ErrInvalidRequest, ErrAborted, or an error from
// extraction, scoring, selection or file operations. When a confirmation
// after selection is declined, the outcome is returned along with ErrAborted.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	kind, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	out := &Outcome{RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", out.RunID))
	log.Info(ctx, "run started",
		logger.String("input", req.Input),
		logger.String("transforms", req.Transforms),
		logger.Bool("pretend", req.Pretend),
	)
	if s.cfg.MetricsFile != "" {
		defer func() {
			if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
				log.Error(ctx, "failed to write metrics", logger.Error(err))
			}
		}()
	}

	var doc *transforms.Document
	switch kind {
	case inputTransforms:
		doc, err = transforms.Load(req.Transforms)
		if err != nil {
			return nil, err
		}
		for _, f := range doc.Ordered() {
			out.Candidates = append(out.Candidates, doc.ImagePath(f))
		}
	case inputVideo:
		if !req.Yes {
			ok, err := s.confirmer.Confirm(ctx, fmt.Sprintf(
				"About to extract all frames from '%s' into '%s'. This folder will persist unless manually removed. Continue?",
				req.Input, req.OutputDir))
			if err != nil {
				return nil, err
			}
			if !ok {
				s.printf("Aborting.\n")
				return nil, ErrAborted
			}
		}
		res, err := s.extractor.ExtractFrames(ctx, req.Input, req.OutputDir)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordFramesExtracted(res.FrameCount)
		out.Candidates = res.FramePaths
	default:
		out.Candidates, err = listImages(req.Input, s.cfg.Extensions)
		if err != nil {
			return nil, err
		}
	}
	log.Info(ctx, "candidates gathered", logger.Int("count", len(out.Candidates)))
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidate images found", selection.ErrEmptyTable)
	}

	target := req.TargetCount
	if req.TargetPercentage > 0 {
		target = int(math.Floor(float64(len(out.Candidates)) * req.TargetPercentage / 100))
	}

	scoreOpts := []scoring.Option{
		scoring.WithWorkers(s.cfg.Workers),
		scoring.WithLogger(log.Named("scoring")),
		scoring.WithMetrics(s.metrics),
	}
	if s.cfg.Progress && s.progress != nil {
		scoreOpts = append(scoreOpts, scoring.WithProgress(s.progress))
	}
	s.printf("Calculating image sharpness...\n")
	table, err := scoring.ScoreAll(ctx, out.Candidates, s.scorer, scoreOpts...)
	if err != nil {
		return nil, err
	}

	res, err := selection.Select(table, target, req.Selection)
	if err != nil {
		return nil, err
	}
	out.Result = res
	s.metrics.RecordSelection(string(res.Strategy), len(res.Selected), res.Candidates, res.Split)
	for _, w := range res.Warnings {
		log.Warn(ctx, "selection warning", logger.String("warning", w))
	}
	log.Info(ctx, "selection complete",
		logger.String("strategy", string(res.Strategy)),
		logger.Int("selected", len(res.Selected)),
		logger.Int("candidates", res.Candidates),
	)
	s.writeReport(table, res)

	switch kind {
	case inputTransforms:
		err = s.applyTransforms(ctx, req, doc, res, out)
	case inputVideo:
		err = s.applyInPlace(ctx, req, res, out, true)
	default:
		if req.OutputDir == "" || samePath(req.Input, req.OutputDir) {
			err = s.applyInPlace(ctx, req, res, out, false)
		} else {
			err = s.applyCopy(ctx, req, res, out)
		}
	}
	if err != nil {
		return out, err
	}

	log.Info(ctx, "run finished",
		logger.Int("copied", out.Copied),
		logger.Int("deleted", out.Deleted),
	)
	return out, nil
}

func (s *Service) validate(req Request) (inputKind, error) {
	if (req.Input == "") == (req.Transforms == "") {
		return 0, fmt.Errorf("%w: exactly one of input and transforms must be set", ErrInvalidRequest)
	}
	if (req.TargetCount > 0) == (req.TargetPercentage > 0) {
		return 0, fmt.Errorf("%w: exactly one of target count and target percentage must be set", ErrInvalidRequest)
	}
	if req.TargetCount < 0 {
		return 0, fmt.Errorf("%w: target count must be positive, got %d", ErrInvalidRequest, req.TargetCount)
	}
	if req.TargetPercentage < 0 || req.TargetPercentage > 100 {
		return 0, fmt.Errorf("%w: target percentage must be within (0, 100], got %v", ErrInvalidRequest, req.TargetPercentage)
	}
	if req.Selection.ForceGrouped && req.Selection.ForceUngrouped {
		return 0, selection.ErrConflictingOptions
	}

	if req.Transforms != "" {
		return inputTransforms, nil
	}
	info, err := os.Stat(req.Input)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if info.IsDir() {
		return inputDirectory, nil
	}
	if req.OutputDir == "" {
		return 0, fmt.Errorf("%w: video input requires an output directory", ErrInvalidRequest)
	}
	return inputVideo, nil
}

// listImages returns the files in dir with one of exts, sorted by name.
func listImages(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.HasExtension(e.Name(), exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func (s *Service) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.report, format, args...)
}
