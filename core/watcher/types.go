// Package watcher provides poll-based change detection for a single
// directory. It includes the directory scanner, the snapshot delta
// computation, and the change engine that drives the poll loop.
package watcher

import "time"

// =============================================================================
// FileOperation
// =============================================================================

// FileOperation represents the type of file change detected.
type FileOperation int

const (
	// OpCreate indicates a file was created.
	OpCreate FileOperation = iota

	// OpModify indicates a file was modified.
	OpModify

	// OpDelete indicates a file was deleted.
	OpDelete
)

// String returns the wire name of the operation, as written to the change log.
func (op FileOperation) String() string {
	switch op {
	case OpCreate:
		return "CREATED"
	case OpModify:
		return "MODIFIED"
	case OpDelete:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// ParseFileOperation converts a wire name back into a FileOperation.
func ParseFileOperation(s string) (FileOperation, bool) {
	switch s {
	case "CREATED":
		return OpCreate, true
	case "MODIFIED":
		return OpModify, true
	case "DELETED":
		return OpDelete, true
	default:
		return 0, false
	}
}

// =============================================================================
// ChangeEvent
// =============================================================================

// ChangeEvent represents one classified change of a watched file.
type ChangeEvent struct {
	// Name is the file name relative to the watched directory.
	Name string

	// Operation is the type of change detected.
	Operation FileOperation

	// Time is when the change was detected.
	Time time.Time
}

// HasContent reports whether the file still exists after the change,
// so its content can be sampled.
func (e ChangeEvent) HasContent() bool {
	return e.Operation == OpCreate || e.Operation == OpModify
}
