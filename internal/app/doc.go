// Package app runs one frame selection job end to end.
//
// # Inputs
//
// A job reads candidates from exactly one source:
//
//   - a directory of images, ordered by file name
//   - a video file, whose frames are first extracted into the output directory
//   - a transforms.json scene description, ordered by COLMAP image id
//
// # Effects
//
// Unless the request is a pretend run, the job changes the file system after
// confirmation: retained images are copied into a separate output directory,
// or discarded images are deleted in place, or a filtered transforms document
// is written. A declined confirmation returns ErrAborted and leaves files as
// they were.
//
// Human-readable progress (the request summary, strategy, warnings and
// sparkline charts) goes to the report writer. Structured logs go to the
// logger.
package app
