package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/sharp-frames/internal/app"
	"github.com/ironsheep/sharp-frames/internal/config"
	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/metrics"
	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "sharp-frames - keep the sharpest frames of an image sequence")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sharp-frames -input <dir|video> (-target-count N | -target-percentage P) [options]")
	fmt.Fprintln(w, "  sharp-frames -transforms <file|dir> (-target-count N | -target-percentage P) [options]")
	fmt.Fprintln(w, "  sharp-frames serve      Run the MCP server on stdin/stdout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	newFlagSet(w, &cliFlags{}).PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  SHARP_FRAMES_CONFIG=<file>       YAML configuration file")
	fmt.Fprintln(w, "  SHARP_FRAMES_LOG_LEVEL=debug     Enable debug logging")
	fmt.Fprintln(w, "  SHARP_FRAMES_<KEY>=<value>       Override any configuration key")
}

type cliFlags struct {
	input, outputDir, transforms, outputFile string
	targetCount                              int
	targetPercentage                         float64
	groups, scalar                           int
	twoPass, forceGrouped, forceUngrouped    bool
	pretend, yes                             bool
	configPath                               string
	workers                                  int
	metric, metricsFile                      string
}

func newFlagSet(w io.Writer, f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("sharp-frames", flag.ContinueOnError)
	fs.SetOutput(w)
	fs.StringVar(&f.input, "input", "", "directory of images or a video file")
	fs.StringVar(&f.outputDir, "output-dir", "", "where retained images go; required for video input (default: prune the input directory in place)")
	fs.StringVar(&f.transforms, "transforms", "", "transforms.json, or the directory containing it")
	fs.StringVar(&f.outputFile, "output-file", "", "filtered transforms output (default: transforms_filtered.json beside the input)")
	fs.IntVar(&f.targetCount, "target-count", 0, "number of images to retain")
	fs.Float64Var(&f.targetPercentage, "target-percentage", 0, "percentage of images to retain, in (0, 100]")
	fs.IntVar(&f.groups, "groups", 0, "number of sequence windows (default: derived from -scalar)")
	fs.IntVar(&f.scalar, "scalar", 1, "group coarsening: groups = target / 2^(scalar-1)")
	fs.BoolVar(&f.twoPass, "two-pass", false, "reconcile a second, half-window shifted pass")
	fs.BoolVar(&f.forceGrouped, "force-grouped", false, "group even when fewer than 2 candidates exist per retained image")
	fs.BoolVar(&f.forceUngrouped, "force-ungrouped", false, "take the globally sharpest images")
	fs.BoolVar(&f.pretend, "pretend", false, "report the selection without changing any file")
	fs.BoolVar(&f.yes, "yes", false, "do not ask for confirmation")
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.IntVar(&f.workers, "workers", 0, "concurrent image decoders (overrides configuration)")
	fs.StringVar(&f.metric, "metric", "", "sharpness metric: laplacian or tenengrad (overrides configuration)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics here after the run (overrides configuration)")
	return fs
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "sharp-frames %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return exitOK
		case "--help", "-h", "help":
			printHelp(stdout)
			return exitOK
		case "serve":
			return serve(ctx, args[1:], stdin, stdout, stderr)
		}
	}

	var f cliFlags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		return exitUsage
	}

	cfg, err := loadConfig(ctx, fs, &f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitUsage
	}
	log := logger.Named("cli")

	svc := app.New(cfg,
		app.WithLogger(logger.Named("app")),
		app.WithConfirmer(app.NewPromptConfirmer(stdin, stdout)),
		app.WithReport(stdout),
		app.WithProgress(stderr),
		app.WithMetrics(metrics.Default()),
	)
	_, err = svc.Run(ctx, app.Request{
		Input:            f.input,
		Transforms:       f.transforms,
		OutputDir:        f.outputDir,
		OutputFile:       f.outputFile,
		TargetCount:      f.targetCount,
		TargetPercentage: f.targetPercentage,
		Selection: selection.Options{
			GroupCount:     f.groups,
			Scalar:         f.scalar,
			TwoPass:        f.twoPass,
			ForceGrouped:   f.forceGrouped,
			ForceUngrouped: f.forceUngrouped,
		},
		Pretend: f.pretend,
		Yes:     f.yes,
	})
	switch {
	case err == nil, errors.Is(err, app.ErrAborted):
		return exitOK
	case errors.Is(err, app.ErrInvalidRequest), errors.Is(err, selection.ErrConflictingOptions):
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	default:
		log.Error(ctx, "run failed", logger.Error(err))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

// loadConfig layers explicitly set command-line flags over the file and
// environment configuration and installs the logger.
func loadConfig(ctx context.Context, fs *flag.FlagSet, f *cliFlags, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(ctx, f.configPath)
	if err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "workers":
			cfg.Workers = f.workers
		case "metric":
			cfg.Metric = f.metric
		case "metrics-file":
			cfg.MetricsFile = f.metricsFile
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Logs go to stderr; stdout carries the report or the MCP protocol
	if err := logger.InitWriter(stderr); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var f cliFlags
	fs := newFlagSet(stderr, &f)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	cfg, err := loadConfig(ctx, fs, &f, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return exitUsage
	}
	log := logger.Named("cli")
	log.Debug(ctx, "starting MCP server",
		logger.String("version", Version),
		logger.String("build_time", BuildTime),
		logger.String("git_commit", GitCommit),
	)

	srv := server.New(cfg,
		server.WithLogger(logger.Named("server")),
		server.WithVersion(Version),
	)
	if err := srv.Serve(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "server error", logger.Error(err))
		return exitError
	}
	if cfg.MetricsFile != "" {
		if err := metrics.Default().WriteTextfile(cfg.MetricsFile); err != nil {
			log.Error(ctx, "failed to write metrics", logger.Error(err))
		}
	}
	return exitOK
}
