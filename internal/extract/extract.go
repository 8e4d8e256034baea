// Package extract pulls still frames out of video files with ffmpeg.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/sharp-frames/internal/logger"
)

// ErrExternalTool reports that the frame extraction binary was missing,
// failed, or produced no frames.
var ErrExternalTool = errors.New("external tool failed")

// ErrFramesExist reports that the output directory already holds frames
// matching the pattern, which extraction would overwrite or mix in.
var ErrFramesExist = errors.New("frames already exist")

// ErrInvalidPattern reports a frame pattern without exactly one %d verb.
var ErrInvalidPattern = errors.New("invalid frame pattern")

// DefaultPattern names extracted frames frame00001.jpg, frame00002.jpg, ...
const DefaultPattern = "frame%05d.jpg"

// stderrTail bounds how much ffmpeg output is carried in errors.
const stderrTail = 512

// Result describes the frames written by one extraction.
type Result struct {
	FramePaths []string
	FrameCount int
}

// FrameExtractor writes every frame of a video into a directory.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*Result, error)
}

// FFmpeg extracts frames by running the ffmpeg binary.
type FFmpeg struct {
	// Binary is the executable name or path. Empty means "ffmpeg".
	Binary string

	// Pattern is the printf-style frame file name. Empty means DefaultPattern.
	Pattern string

	Logger logger.Logger
}

// ExtractFrames runs
//
//	ffmpeg -n -i <video> -vsync vfr -q:v 1 <outputDir>/<pattern>
//
// creating outputDir if needed. It refuses to run when outputDir already
// holds files matching the pattern. Only files matching the pattern are
// returned, in frame number order.
func (f *FFmpeg) ExtractFrames(ctx context.Context, videoPath string, outputDir string) (*Result, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	pattern := f.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	log := f.Logger
	if log == nil {
		log = logger.Nop()
	}

	if _, err := ParsePattern(pattern); err != nil {
		return nil, err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video %s: %w", videoPath, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	existing, err := ListFrames(outputDir, pattern)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %d file(s) matching %s in %s", ErrFramesExist, len(existing), pattern, outputDir)
	}

	args := []string{
		"-n",
		"-i", videoPath,
		"-vsync", "vfr",
		"-q:v", "1",
		filepath.Join(outputDir, pattern),
	}
	log.Info(ctx, "extracting frames",
		logger.String("video", videoPath),
		logger.String("output_dir", outputDir),
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrExternalTool, binary, err, tail(stderr.String()))
	}

	frames, err := ListFrames(outputDir, pattern)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s produced no frames from %s", ErrExternalTool, binary, videoPath)
	}

	log.Info(ctx, "frames extracted", logger.Int("count", len(frames)))
	return &Result{FramePaths: frames, FrameCount: len(frames)}, nil
}

// ParsePattern compiles a printf-style frame pattern such as frame%05d.jpg
// into a regular expression matching the names it produces. The frame
// number is the first submatch.
func ParsePattern(pattern string) (*regexp.Regexp, error) {
	verbs := patternVerb.FindAllStringIndex(pattern, -1)
	if len(verbs) != 1 || strings.Count(pattern, "%") != 1 {
		return nil, fmt.Errorf("%w: %q needs exactly one %%d verb", ErrInvalidPattern, pattern)
	}
	if filepath.Base(pattern) != pattern {
		return nil, fmt.Errorf("%w: %q must be a file name", ErrInvalidPattern, pattern)
	}
	prefix, suffix := pattern[:verbs[0][0]], pattern[verbs[0][1]:]
	return regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + `(\d+)` + regexp.QuoteMeta(suffix) + "$"), nil
}

var patternVerb = regexp.MustCompile(`%0?\d*d`)

// ListFrames returns the files in dir whose names pattern could have
// produced, ordered by frame number.
func ListFrames(dir, pattern string) ([]string, error) {
	re, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}

	type frame struct {
		path string
		n    int
	}
	var frames []frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		frames = append(frames, frame{path: filepath.Join(dir, e.Name()), n: n})
	}
	sort.Slice(frames, func(i, j int) bool {
		if frames[i].n != frames[j].n {
			return frames[i].n < frames[j].n
		}
		return frames[i].path < frames[j].path
	})

	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.path
	}
	return paths, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
