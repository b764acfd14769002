package watcher

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrInvalidInterval indicates the poll interval is invalid.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrEmptyDir indicates the watched directory was not specified.
	ErrEmptyDir = errors.New("watched directory cannot be empty")

	// ErrNotDir indicates the watched path exists but is not a directory.
	ErrNotDir = errors.New("watched path is not a directory")

	// ErrInvalidPattern indicates a glob pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrAlreadyRunning indicates the engine is already running.
	ErrAlreadyRunning = errors.New("engine is already running")

	// ErrNotInitialized indicates Poll was called before a baseline was taken.
	ErrNotInitialized = errors.New("engine has no baseline; call Init first")
)

// ScanError reports that the watched directory could not be listed.
// A ScanError never means the directory is empty.
type ScanError struct {
	Dir string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// SinkWriteError reports that a persistence sink could not be opened or
// appended to.
type SinkWriteError struct {
	Sink   string
	Target string
	Err    error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("%s sink %s: %v", e.Sink, e.Target, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// PreviewReadError reports that a file could not be read for its preview,
// usually because it vanished between detection and read.
type PreviewReadError struct {
	Path string
	Err  error
}

func (e *PreviewReadError) Error() string {
	return fmt.Sprintf("preview %s: %v", e.Path, e.Err)
}

func (e *PreviewReadError) Unwrap() error {
	return e.Err
}
