package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/gobwas/glob"
)

// =============================================================================
// Configuration
// =============================================================================

// ScanConfig holds configuration for the directory scanner.
type ScanConfig struct {
	// Dir is the directory to scan (required). Only its immediate entries
	// are read.
	Dir string

	// Include are glob patterns matched against file names. If empty, all
	// regular files are included (subject to exclusions).
	Include []string

	// Exclude are glob patterns for file names to skip. Exclusion wins over
	// inclusion.
	Exclude []string
}

// Scanner produces a snapshot of the watched directory.
type Scanner interface {
	Scan(ctx context.Context) (*Snapshot, error)
}

// =============================================================================
// DirScanner
// =============================================================================

// DirScanner lists the regular files directly inside one directory and
// fingerprints them from their metadata. File content is never read.
type DirScanner struct {
	dir             string
	includeMatchers []glob.Glob
	excludeMatchers []glob.Glob
}

// NewDirScanner creates a scanner for the configured directory.
// Returns ErrInvalidPattern if an include or exclude pattern does not compile.
func NewDirScanner(config ScanConfig) (*DirScanner, error) {
	if config.Dir == "" {
		return nil, ErrEmptyDir
	}

	include, err := compileGlobs(config.Include)
	if err != nil {
		return nil, err
	}

	exclude, err := compileGlobs(config.Exclude)
	if err != nil {
		return nil, err
	}

	return &DirScanner{
		dir:             config.Dir,
		includeMatchers: include,
		excludeMatchers: exclude,
	}, nil
}

// compileGlobs compiles a slice of glob pattern strings into matchers.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	matchers := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		matcher, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, err)
		}
		matchers = append(matchers, matcher)
	}

	return matchers, nil
}

// Scan lists the directory and returns a snapshot of its regular files.
// If the directory cannot be listed the error is a *ScanError; callers must
// not read it as an empty directory. Cancellation returns ctx.Err() as is.
func (s *DirScanner) Scan(ctx context.Context) (*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &ScanError{Dir: s.dir, Err: err}
	}

	files := make(map[string]Fingerprint, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fp, ok, err := s.fingerprint(entry)
		if err != nil {
			return nil, &ScanError{Dir: s.dir, Err: err}
		}
		if ok {
			files[entry.Name()] = fp
		}
	}

	return NewSnapshot(files), nil
}

// fingerprint returns the entry's fingerprint, or ok=false if the entry is
// not a watched regular file.
func (s *DirScanner) fingerprint(entry fs.DirEntry) (Fingerprint, bool, error) {
	if !entry.Type().IsRegular() || !s.matches(entry.Name()) {
		return Fingerprint{}, false, nil
	}

	info, err := entry.Info()
	if errors.Is(err, fs.ErrNotExist) {
		return Fingerprint{}, false, nil // removed after listing
	}
	if err != nil {
		return Fingerprint{}, false, err
	}

	if !info.Mode().IsRegular() {
		return Fingerprint{}, false, nil
	}

	return FingerprintOf(info), true, nil
}

// matches applies the include and exclude patterns to a file name.
func (s *DirScanner) matches(name string) bool {
	for _, m := range s.excludeMatchers {
		if m.Match(name) {
			return false
		}
	}

	if len(s.includeMatchers) == 0 {
		return true
	}

	for _, m := range s.includeMatchers {
		if m.Match(name) {
			return true
		}
	}
	return false
}
