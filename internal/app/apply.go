package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/transforms"
)

func (s *Service) confirm(ctx context.Context, req Request, prompt string) error {
	if req.Yes {
		return nil
	}
	ok, err := s.confirmer.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		s.printf("Aborting.\n")
		return ErrAborted
	}
	return nil
}

// applyInPlace deletes every candidate not selected. For video input the
// candidates live in the output directory.
func (s *Service) applyInPlace(ctx context.Context, req Request, res *selection.Result, out *Outcome, video bool) error {
	n := len(res.Selected)
	if req.Pretend {
		s.printf("%s (pretend)\n", summary("Would have retained", n))
		if video {
			s.printf("Warning: Folder '%s' persists, with all extracted frames in it.\n", req.OutputDir)
		}
		return nil
	}

	if video && !req.Yes {
		s.printf("Folder '%s' will persist, with all extracted frames in it. Answering yes prunes it to the selection; answering no keeps every extracted frame.\n", req.OutputDir)
	}
	if err := s.confirm(ctx, req, fmt.Sprintf("About to delete all but %d sharpest images. Continue?", n)); err != nil {
		return err
	}

	kept := res.Set()
	for _, path := range out.Candidates {
		if _, ok := kept[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("delete discarded image: %w", err)
		}
		out.Deleted++
	}
	s.logger.Debug(ctx, "discarded images deleted", logger.Int("count", out.Deleted))
	s.printf("%s\n", summary("Retained", n))
	return nil
}

// applyCopy copies selected images into req.OutputDir, leaving the input
// directory untouched.
func (s *Service) applyCopy(ctx context.Context, req Request, res *selection.Result, out *Outcome) error {
	n := len(res.Selected)
	if req.Pretend {
		s.printf("%s Would have copied them to '%s'. (pretend)\n", summary("Would have retained", n), req.OutputDir)
		return nil
	}
	if err := s.confirm(ctx, req, fmt.Sprintf("About to copy %d sharpest images into '%s'. Continue?", n, req.OutputDir)); err != nil {
		return err
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for _, img := range res.Selected {
		dst := filepath.Join(req.OutputDir, filepath.Base(img.ID))
		if err := copyFile(img.ID, dst); err != nil {
			return err
		}
		out.Copied++
	}
	s.printf("%s Copied to '%s'.\n", summary("Retained", n), req.OutputDir)
	return nil
}

// applyTransforms writes the document filtered down to the selected frames.
func (s *Service) applyTransforms(ctx context.Context, req Request, doc *transforms.Document, res *selection.Result, out *Outcome) error {
	n := len(res.Selected)
	path := req.OutputFile
	if path == "" {
		path = transforms.DefaultOutputPath(req.Transforms)
	}
	if req.Pretend {
		s.printf("%s Would have saved to '%s'. (pretend)\n", summary("Would have retained", n), path)
		return nil
	}
	if err := s.confirm(ctx, req, fmt.Sprintf("About to remove all but %d images from '%s'. Continue?", n, path)); err != nil {
		return err
	}

	kept := res.Set()
	removed := doc.Retain(func(f transforms.Frame) bool {
		_, ok := kept[doc.ImagePath(f)]
		return ok
	})
	if err := doc.Save(path); err != nil {
		return err
	}
	out.TransformsFile = path
	s.logger.Debug(ctx, "transforms filtered",
		logger.Int("removed", removed),
		logger.String("path", path),
	)
	s.printf("%s Saved to '%s'.\n", summary("Retained", n), path)
	return nil
}

// copyFile copies src to dst, keeping its permissions and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	outFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := outFile.Close(); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
