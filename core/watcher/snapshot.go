package watcher

import (
	"io/fs"
	"sort"
)

// Fingerprint identifies one observed version of a file. Two fingerprints
// are only ever compared for equality.
type Fingerprint struct {
	ModTime int64 // UnixNano
	Size    int64
}

// FingerprintOf derives the fingerprint from file metadata.
func FingerprintOf(info fs.FileInfo) Fingerprint {
	return Fingerprint{
		ModTime: info.ModTime().UnixNano(),
		Size:    info.Size(),
	}
}

// Snapshot is an immutable mapping from file name to fingerprint taken at
// one point in time.
type Snapshot struct {
	files map[string]Fingerprint
	names []string
}

// NewSnapshot builds a snapshot from the given entries. The map is copied,
// so later changes to it do not affect the snapshot.
func NewSnapshot(entries map[string]Fingerprint) *Snapshot {
	files := make(map[string]Fingerprint, len(entries))
	names := make([]string, 0, len(entries))
	for name, fp := range entries {
		files[name] = fp
		names = append(names, name)
	}
	sort.Strings(names)
	return &Snapshot{files: files, names: names}
}

// Len returns the number of files in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Get returns the fingerprint recorded for name.
func (s *Snapshot) Get(name string) (Fingerprint, bool) {
	if s == nil {
		return Fingerprint{}, false
	}
	fp, ok := s.files[name]
	return fp, ok
}

// Has reports whether name is present in the snapshot.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns the file names in lexicographic order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
