// Package transforms reads and writes transforms.json scene descriptions
// produced by COLMAP-based reconstruction pipelines.
//
// Only the fields needed for frame selection are interpreted. Every other
// field, at the top level and per frame, is kept as raw JSON and written back
// unchanged.
package transforms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the document name looked up when Load is given a directory.
const FileName = "transforms.json"

// FilteredFileName is the default output name for a filtered document.
const FilteredFileName = "transforms_filtered.json"

// Frame is one registered image of the scene.
type Frame struct {
	// FilePath is relative to the document's directory.
	FilePath string

	// ColmapID is the reconstruction's image id, which orders the sequence.
	ColmapID int

	fields map[string]json.RawMessage
}

// UnmarshalJSON keeps all fields of the frame object.
func (f *Frame) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &f.fields); err != nil {
		return err
	}
	if raw, ok := f.fields["file_path"]; ok {
		if err := json.Unmarshal(raw, &f.FilePath); err != nil {
			return fmt.Errorf("file_path: %w", err)
		}
	}
	if raw, ok := f.fields["colmap_im_id"]; ok {
		if err := json.Unmarshal(raw, &f.ColmapID); err != nil {
			return fmt.Errorf("colmap_im_id: %w", err)
		}
	}
	return nil
}

// MarshalJSON writes the frame's fields as loaded.
func (f Frame) MarshalJSON() ([]byte, error) {
	if f.fields == nil {
		return json.Marshal(map[string]interface{}{
			"file_path":    f.FilePath,
			"colmap_im_id": f.ColmapID,
		})
	}
	return json.Marshal(f.fields)
}

// Document is a parsed transforms.json.
type Document struct {
	// Path is the file the document was loaded from.
	Path string

	// Dir is the directory frame paths are relative to.
	Dir string

	Frames []Frame

	fields map[string]json.RawMessage
}

// Load reads a transforms document. path may name the file itself or a
// directory containing transforms.json.
func Load(path string) (*Document, error) {
	jsonPath := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		jsonPath = filepath.Join(path, FileName)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("read transforms: %w", err)
	}

	doc := &Document{Path: jsonPath, Dir: filepath.Dir(jsonPath)}
	if err := json.Unmarshal(data, &doc.fields); err != nil {
		return nil, fmt.Errorf("parse %s: %w", jsonPath, err)
	}
	raw, ok := doc.fields["frames"]
	if !ok {
		return nil, fmt.Errorf("parse %s: missing frames", jsonPath)
	}
	if err := json.Unmarshal(raw, &doc.Frames); err != nil {
		return nil, fmt.Errorf("parse %s frames: %w", jsonPath, err)
	}
	return doc, nil
}

// Ordered returns the frames sorted by ColmapID. Frames with equal ids keep
// their document order.
func (d *Document) Ordered() []Frame {
	frames := make([]Frame, len(d.Frames))
	copy(frames, d.Frames)
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].ColmapID < frames[j].ColmapID
	})
	return frames
}

// ImagePath resolves a frame's file against the document directory.
func (d *Document) ImagePath(f Frame) string {
	if filepath.IsAbs(f.FilePath) {
		return f.FilePath
	}
	return filepath.Join(d.Dir, f.FilePath)
}

// Retain drops every frame for which keep returns false. Remaining frames keep
// their document order. It returns the number of frames removed.
func (d *Document) Retain(keep func(Frame) bool) int {
	kept := d.Frames[:0]
	for _, f := range d.Frames {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	removed := len(d.Frames) - len(kept)
	d.Frames = kept
	return removed
}

// Marshal encodes the document with four-space indentation.
func (d *Document) Marshal() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(d.fields)+1)
	for k, v := range d.fields {
		fields[k] = v
	}
	frames := d.Frames
	if frames == nil {
		frames = []Frame{}
	}
	raw, err := json.Marshal(frames)
	if err != nil {
		return nil, err
	}
	fields["frames"] = raw

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the document to path.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("encode transforms: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transforms: %w", err)
	}
	return nil
}

// DefaultOutputPath returns transforms_filtered.json in the directory of the
// document at transformsPath, or inside transformsPath if it is a directory.
func DefaultOutputPath(transformsPath string) string {
	if info, err := os.Stat(transformsPath); err == nil && info.IsDir() {
		return filepath.Join(transformsPath, FilteredFileName)
	}
	return filepath.Join(filepath.Dir(transformsPath), FilteredFileName)
}
