package watcher

import "time"

// Diff computes the change events that turn previous into current.
//
// Created and Modified events come first, in name order over current.
// Deleted events follow, in name order over previous. A nil snapshot is
// treated as empty. Diff never fails and does not modify its inputs.
//
// A file removed and recreated with the same fingerprint between two scans
// produces no event, and neither does a rewrite that leaves both mtime and
// size unchanged.
//
// Repeated calls on the same inputs yield the same names and operations in
// the same order. Every event of one call carries the time of that call, so
// events from separate calls are not equal as values.
func Diff(previous, current *Snapshot) []ChangeEvent {
	return diffAt(previous, current, time.Now())
}

func diffAt(previous, current *Snapshot, now time.Time) []ChangeEvent {
	events := make([]ChangeEvent, 0)

	for _, name := range current.Names() {
		curr, _ := current.Get(name)
		prev, existed := previous.Get(name)

		switch {
		case !existed:
			events = append(events, ChangeEvent{Name: name, Operation: OpCreate, Time: now})
		case prev != curr:
			events = append(events, ChangeEvent{Name: name, Operation: OpModify, Time: now})
		}
	}

	for _, name := range previous.Names() {
		if !current.Has(name) {
			events = append(events, ChangeEvent{Name: name, Operation: OpDelete, Time: now})
		}
	}

	return events
}
