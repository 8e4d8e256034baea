// Package config defines process configuration and its loading.
//
// Values are layered, lowest precedence first: defaults from New, an optional
// YAML file, SHARP_FRAMES_* environment variables, then whatever the command
// line overrides explicitly.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ironsheep/sharp-frames/internal/extract"
	"github.com/ironsheep/sharp-frames/internal/imaging"
	"github.com/ironsheep/sharp-frames/internal/sparkline"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Workers bounds concurrent image scoring.
	Workers int `koanf:"workers"`

	// Metric is the focus measure: laplacian or tenengrad.
	Metric string `koanf:"metric"`

	// MaxDimension downscales images before scoring. 0 keeps full size.
	MaxDimension int `koanf:"max_dimension"`

	// CenterCrop scores only this central fraction of each image. 0 disables.
	CenterCrop float64 `koanf:"center_crop"`

	// DenoiseSigma blurs images before scoring. 0 disables.
	DenoiseSigma float64 `koanf:"denoise_sigma"`

	// Extensions lists the file extensions considered candidate images.
	Extensions []string `koanf:"extensions"`

	// FFmpegPath is the frame extraction binary.
	FFmpegPath string `koanf:"ffmpeg_path"`

	// FramePattern is the printf-style name of extracted frames.
	FramePattern string `koanf:"frame_pattern"`

	// SparklineBins is the width of report charts. 0 disables charts.
	SparklineBins int `koanf:"sparkline_bins"`

	// SparklineColor renders charts with 24-bit ANSI colors.
	SparklineColor bool `koanf:"sparkline_color"`

	// SparklineGradientLow and SparklineGradientHigh are the "#rrggbb" colors
	// of the lowest and highest glyph when SparklineColor is set.
	SparklineGradientLow  string `koanf:"sparkline_gradient_low"`
	SparklineGradientHigh string `koanf:"sparkline_gradient_high"`

	// Progress shows a progress bar while scoring.
	Progress bool `koanf:"progress"`

	// MetricsFile, when set, receives Prometheus text-format metrics after a run.
	MetricsFile string `koanf:"metrics_file"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Workers:       runtime.NumCPU(),
		Metric:        string(imaging.MetricLaplacian),
		Extensions:    []string{".jpg"},
		FFmpegPath:    "ffmpeg",
		FramePattern:  extract.DefaultPattern,
		SparklineBins: 100,
		Progress:      true,

		SparklineGradientLow:  sparkline.DefaultLow,
		SparklineGradientHigh: sparkline.DefaultHigh,
	}
}

// Validate checks value ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := imaging.ParseMetric(c.Metric); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxDimension < 0 {
		return fmt.Errorf("%w: max_dimension must be >= 0, got %d", ErrInvalidConfig, c.MaxDimension)
	}
	if c.CenterCrop < 0 || c.CenterCrop > 1 {
		return fmt.Errorf("%w: center_crop must be within [0, 1], got %v", ErrInvalidConfig, c.CenterCrop)
	}
	if c.DenoiseSigma < 0 {
		return fmt.Errorf("%w: denoise_sigma must be >= 0, got %v", ErrInvalidConfig, c.DenoiseSigma)
	}
	if c.SparklineBins < 0 || c.SparklineBins > sparkline.MaxBins {
		return fmt.Errorf("%w: sparkline_bins must be within [0, %d], got %d", ErrInvalidConfig, sparkline.MaxBins, c.SparklineBins)
	}
	if _, err := sparkline.ParseGradient(c.SparklineGradientLow, c.SparklineGradientHigh); err != nil {
		return fmt.Errorf("%w: sparkline gradient: %v", ErrInvalidConfig, err)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: extensions must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.FFmpegPath) == "" {
		return fmt.Errorf("%w: ffmpeg_path must not be empty", ErrInvalidConfig)
	}
	if _, err := extract.ParsePattern(c.FramePattern); err != nil {
		return fmt.Errorf("%w: frame_pattern: %v", ErrInvalidConfig, err)
	}
	return nil
}

// PrepareOptions returns the scoring preprocessing described by c.
func (c *Config) PrepareOptions() imaging.PrepareOptions {
	return imaging.PrepareOptions{
		CenterCrop:   c.CenterCrop,
		MaxDimension: c.MaxDimension,
		DenoiseSigma: c.DenoiseSigma,
	}
}

// SharpnessMetric returns the parsed metric, falling back to laplacian.
func (c *Config) SharpnessMetric() imaging.Metric {
	m, err := imaging.ParseMetric(c.Metric)
	if err != nil {
		return imaging.MetricLaplacian
	}
	return m
}

// Gradient returns the chart color gradient, falling back to
// sparkline.DefaultGradient when either end does not parse.
func (c *Config) Gradient() sparkline.Gradient {
	g, err := sparkline.ParseGradient(c.SparklineGradientLow, c.SparklineGradientHigh)
	if err != nil {
		return sparkline.DefaultGradient
	}
	return g
}
