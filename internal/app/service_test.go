package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/ironsheep/sharp-frames/internal/config"
	"github.com/ironsheep/sharp-frames/internal/extract"
	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/metrics"
	"github.com/ironsheep/sharp-frames/internal/scoring"
	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/transforms"
)

// Ten frames in five windows of two; the sharper frame of each window is
// a02, a04, a05, a08, a09.
var frameScores = []float64{1, 9, 2, 8, 7, 3, 4, 6, 5, 0}

var wantKept = []string{"a02.jpg", "a04.jpg", "a05.jpg", "a08.jpg", "a09.jpg"}

func frameName(i int) string { return fmt.Sprintf("a%02d.jpg", i+1) }

// byName scores files by their base name using frameScores.
var byName = scoring.ScorerFunc(func(_ context.Context, path string) (float64, error) {
	var n int
	if _, err := fmt.Sscanf(filepath.Base(path), "a%02d.jpg", &n); err != nil {
		return 0, err
	}
	return frameScores[n-1], nil
})

func writeFrames(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := range frameScores {
		if err := os.WriteFile(filepath.Join(dir, frameName(i)), []byte(frameName(i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jpg") {
			names = append(names, e.Name())
		}
	}
	return names
}

type fakeExtractor struct{}

func (fakeExtractor) ExtractFrames(_ context.Context, _ string, outputDir string) (*extract.Result, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	res := &extract.Result{}
	for i := range frameScores {
		p := filepath.Join(outputDir, frameName(i))
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			return nil, err
		}
		res.FramePaths = append(res.FramePaths, p)
	}
	res.FrameCount = len(res.FramePaths)
	return res, nil
}

func newTestService(report *bytes.Buffer, confirm Confirmer, opts ...Option) *Service {
	cfg := config.New()
	cfg.SparklineBins = 10
	base := []Option{
		WithScorer(byName),
		WithExtractor(fakeExtractor{}),
		WithConfirmer(confirm),
		WithMetrics(metrics.NewManager()),
		WithReport(report),
		WithLogger(logger.Nop()),
	}
	return New(cfg, append(base, opts...)...)
}

var approve = ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

func TestService_Directory(t *testing.T) {
	convey.Convey("Given a directory of ten frames", t, func() {
		dir := filepath.Join(t.TempDir(), "frames")
		writeFrames(t, dir)
		var report bytes.Buffer
		ctx := context.Background()

		convey.Convey("When half are requested in pretend mode", func() {
			svc := newTestService(&report, Decline)
			out, err := svc.Run(ctx, Request{Input: dir, TargetPercentage: 50, Pretend: true})

			convey.Convey("Then the selection is reported and nothing changes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Result.Strategy, convey.ShouldEqual, selection.StrategyGrouped)
				convey.So(len(out.Candidates), convey.ShouldEqual, 10)
				convey.So(out.RunID, convey.ShouldNotBeEmpty)
				convey.So(listNames(t, dir), convey.ShouldHaveLength, 10)
				text := report.String()
				convey.So(text, convey.ShouldContainSubstring, "Requested 5 out of 10 images (50.0%, 1 in 2.0).")
				convey.So(text, convey.ShouldContainSubstring, "Selecting 5 images across 5 groups, with total ~2.0 images per group and selecting ~1.0 image per group (scalar 1).")
				convey.So(text, convey.ShouldContainSubstring, "Distribution of image quality:")
				convey.So(text, convey.ShouldContainSubstring, "Would have retained 5 sharpest images.")
			})
		})

		convey.Convey("When run in place with confirmation skipped", func() {
			svc := newTestService(&report, Decline)
			out, err := svc.Run(ctx, Request{Input: dir, TargetCount: 5, Yes: true})

			convey.Convey("Then discarded frames are deleted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Deleted, convey.ShouldEqual, 5)
				convey.So(listNames(t, dir), convey.ShouldResemble, wantKept)
			})
		})

		convey.Convey("When the confirmation is declined", func() {
			svc := newTestService(&report, Decline)
			out, err := svc.Run(ctx, Request{Input: dir, TargetCount: 5})

			convey.Convey("Then the run aborts without deleting", func() {
				convey.So(errors.Is(err, ErrAborted), convey.ShouldBeTrue)
				convey.So(out.Result, convey.ShouldNotBeNil)
				convey.So(listNames(t, dir), convey.ShouldHaveLength, 10)
				convey.So(report.String(), convey.ShouldContainSubstring, "Aborting.")
			})
		})

		convey.Convey("When a separate output directory is given", func() {
			old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
			convey.So(os.Chtimes(filepath.Join(dir, "a02.jpg"), old, old), convey.ShouldBeNil)
			outDir := filepath.Join(t.TempDir(), "kept")
			svc := newTestService(&report, approve)
			out, err := svc.Run(ctx, Request{Input: dir, OutputDir: outDir, TargetCount: 5})

			convey.Convey("Then selected frames are copied with their timestamps", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Copied, convey.ShouldEqual, 5)
				convey.So(listNames(t, dir), convey.ShouldHaveLength, 10)
				convey.So(listNames(t, outDir), convey.ShouldResemble, wantKept)
				info, statErr := os.Stat(filepath.Join(outDir, "a02.jpg"))
				convey.So(statErr, convey.ShouldBeNil)
				convey.So(info.ModTime().Equal(old), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When colored charts use a configured gradient", func() {
			svc := newTestService(&report, Decline)
			svc.cfg.SparklineColor = true
			svc.cfg.SparklineGradientLow = "#000000"
			svc.cfg.SparklineGradientHigh = "#ffffff"
			_, err := svc.Run(ctx, Request{Input: dir, TargetCount: 5, Pretend: true})

			convey.Convey("Then the chart glyphs run from the low to the high color", func() {
				convey.So(err, convey.ShouldBeNil)
				text := report.String()
				convey.So(text, convey.ShouldContainSubstring, "\x1b[38;2;0;0;0m▁")
				convey.So(text, convey.ShouldContainSubstring, "\x1b[38;2;255;255;255m█")
				convey.So(text, convey.ShouldNotContainSubstring, "\x1b[38;2;74;111;165m")
			})
		})

		convey.Convey("When a metrics file is configured", func() {
			promFile := filepath.Join(t.TempDir(), "run.prom")
			svc := newTestService(&report, Decline)
			svc.cfg.MetricsFile = promFile
			_, err := svc.Run(ctx, Request{Input: dir, TargetCount: 5, Pretend: true, Selection: selection.Options{ForceUngrouped: true}})

			convey.Convey("Then the metrics are written after the run", func() {
				convey.So(err, convey.ShouldBeNil)
				data, readErr := os.ReadFile(promFile)
				convey.So(readErr, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, `sharp_frames_selection_runs_total{strategy="ungrouped"} 1`)
			})
		})
	})
}

func TestService_Video(t *testing.T) {
	convey.Convey("Given a video file", t, func() {
		video := filepath.Join(t.TempDir(), "clip.mp4")
		convey.So(os.WriteFile(video, []byte("video"), 0o644), convey.ShouldBeNil)
		outDir := filepath.Join(t.TempDir(), "extracted")
		var report bytes.Buffer
		ctx := context.Background()

		convey.Convey("When frames are extracted and pruned", func() {
			var prompts []string
			record := ConfirmFunc(func(_ context.Context, p string) (bool, error) {
				prompts = append(prompts, p)
				return true, nil
			})
			svc := newTestService(&report, record)
			out, err := svc.Run(ctx, Request{Input: video, OutputDir: outDir, TargetCount: 5})

			convey.Convey("Then only the selection remains in the output directory", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(prompts, convey.ShouldHaveLength, 2)
				convey.So(out.Deleted, convey.ShouldEqual, 5)
				convey.So(listNames(t, outDir), convey.ShouldResemble, wantKept)
			})
		})

		convey.Convey("When ffmpeg writes into a folder holding other images", func() {
			if runtime.GOOS == "windows" {
				t.Skip("shell script stand-ins need a POSIX shell")
			}
			bin := filepath.Join(t.TempDir(), "ffmpeg")
			script := "#!/bin/sh\nfor last; do :; done\nfor i in 01 02 03 04 05 06 07 08 09 10; do : > \"$(dirname \"$last\")/a$i.jpg\"; done\n"
			convey.So(os.WriteFile(bin, []byte(script), 0o755), convey.ShouldBeNil)
			convey.So(os.MkdirAll(outDir, 0o755), convey.ShouldBeNil)
			convey.So(os.WriteFile(filepath.Join(outDir, "cover.jpg"), []byte("keep"), 0o644), convey.ShouldBeNil)

			svc := newTestService(&report, approve, WithExtractor(&extract.FFmpeg{Binary: bin, Pattern: "a%02d.jpg"}))
			out, err := svc.Run(ctx, Request{Input: video, OutputDir: outDir, TargetCount: 5, Yes: true})

			convey.Convey("Then only extracted frames are candidates and the rest is left alone", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Candidates, convey.ShouldHaveLength, 10)
				convey.So(out.Deleted, convey.ShouldEqual, 5)
				convey.So(listNames(t, outDir), convey.ShouldResemble, append(append([]string(nil), wantKept...), "cover.jpg"))
			})
		})

		convey.Convey("When extraction is declined", func() {
			svc := newTestService(&report, Decline)
			_, err := svc.Run(ctx, Request{Input: video, OutputDir: outDir, TargetCount: 5})

			convey.Convey("Then nothing is extracted", func() {
				convey.So(errors.Is(err, ErrAborted), convey.ShouldBeTrue)
				_, statErr := os.Stat(outDir)
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When no output directory is given", func() {
			svc := newTestService(&report, approve)
			_, err := svc.Run(ctx, Request{Input: video, TargetCount: 5})

			convey.Convey("Then the request is rejected", func() {
				convey.So(errors.Is(err, ErrInvalidRequest), convey.ShouldBeTrue)
			})
		})
	})
}

func TestService_Transforms(t *testing.T) {
	convey.Convey("Given a transforms document listing frames out of id order", t, func() {
		dir := t.TempDir()
		writeFrames(t, filepath.Join(dir, "images"))
		var frames []string
		for i := len(frameScores) - 1; i >= 0; i-- {
			frames = append(frames, fmt.Sprintf(`{"file_path": "images/%s", "colmap_im_id": %d}`, frameName(i), i+1))
		}
		doc := `{"camera_model": "OPENCV", "frames": [` + strings.Join(frames, ",") + `]}`
		convey.So(os.WriteFile(filepath.Join(dir, transforms.FileName), []byte(doc), 0o644), convey.ShouldBeNil)
		var report bytes.Buffer

		convey.Convey("When half the frames are retained", func() {
			svc := newTestService(&report, approve)
			out, err := svc.Run(context.Background(), Request{Transforms: dir, TargetCount: 5})

			convey.Convey("Then the filtered document keeps the selected frames", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.TransformsFile, convey.ShouldEqual, filepath.Join(dir, transforms.FilteredFileName))
				filtered, loadErr := transforms.Load(out.TransformsFile)
				convey.So(loadErr, convey.ShouldBeNil)
				var names []string
				for _, f := range filtered.Ordered() {
					names = append(names, filepath.Base(f.FilePath))
				}
				convey.So(names, convey.ShouldResemble, wantKept)
				convey.So(listNames(t, filepath.Join(dir, "images")), convey.ShouldHaveLength, 10)
			})
		})
	})
}

func TestService_InvalidRequests(t *testing.T) {
	dir := t.TempDir()
	writeFrames(t, dir)
	var report bytes.Buffer
	svc := newTestService(&report, approve)

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "no source", req: Request{TargetCount: 1}, want: ErrInvalidRequest},
		{name: "two sources", req: Request{Input: dir, Transforms: dir, TargetCount: 1}, want: ErrInvalidRequest},
		{name: "no target", req: Request{Input: dir}, want: ErrInvalidRequest},
		{name: "two targets", req: Request{Input: dir, TargetCount: 1, TargetPercentage: 10}, want: ErrInvalidRequest},
		{name: "percentage above 100", req: Request{Input: dir, TargetPercentage: 150}, want: ErrInvalidRequest},
		{name: "missing input", req: Request{Input: filepath.Join(dir, "missing"), TargetCount: 1}, want: ErrInvalidRequest},
		{name: "conflicting force flags", req: Request{Input: dir, TargetCount: 1, Selection: selection.Options{ForceGrouped: true, ForceUngrouped: true}}, want: selection.ErrConflictingOptions},
		{name: "target above candidates", req: Request{Input: dir, TargetCount: 11, Pretend: true}, want: selection.ErrInvalidTarget},
		{name: "percentage rounding to zero", req: Request{Input: dir, TargetPercentage: 5, Pretend: true}, want: selection.ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPromptConfirmer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		c := NewPromptConfirmer(strings.NewReader(tt.input), &out)
		got, err := c.Confirm(context.Background(), "Continue?")
		if err != nil {
			t.Fatalf("Confirm(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Continue? [y/N]: " {
			t.Errorf("prompt: got %q", out.String())
		}
	}
}
