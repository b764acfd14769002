//go:build !linux && !windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", appName)
}

func platformStateDefault() string {
	return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", appName, "state")
}
