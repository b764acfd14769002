// Package sink provides append-only persistence for change events: a
// JSON-lines log file and an optional SQLite event table.
package sink

import (
	"github.com/adalundhe/pollwatch/core/watcher"
)

// TimestampLayout is the local-time layout of Record.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is the persisted form of a change event.
type Record struct {
	Timestamp string `json:"timestamp"`
	File      string `json:"file"`
	Change    string `json:"change"`
}

// NewRecord renders a change event for persistence.
func NewRecord(ev watcher.ChangeEvent) Record {
	return Record{
		Timestamp: ev.Time.Local().Format(TimestampLayout),
		File:      ev.Name,
		Change:    ev.Operation.String(),
	}
}
