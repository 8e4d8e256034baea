package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrUnreadable reports an image that cannot be opened or decoded.
var ErrUnreadable = errors.New("unreadable image")

// DefaultExtensions lists the file extensions treated as candidate images.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png"}

// Load opens and decodes the image at path.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. Any open or decode
// failure is returned wrapped with ErrUnreadable.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an image from r, wrapping failures with ErrUnreadable.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return img, nil
}

// HasExtension reports whether path ends in one of exts, ignoring case.
// An empty exts falls back to DefaultExtensions.
func HasExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
