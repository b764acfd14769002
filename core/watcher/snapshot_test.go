package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot_CopiesInput(t *testing.T) {
	entries := map[string]Fingerprint{"a.txt": {ModTime: 1, Size: 1}}
	snap := NewSnapshot(entries)

	entries["b.txt"] = Fingerprint{ModTime: 2}
	delete(entries, "a.txt")

	assert.Equal(t, 1, snap.Len())
	assert.True(t, snap.Has("a.txt"))
	assert.False(t, snap.Has("b.txt"))
}

func TestSnapshot_NamesSorted(t *testing.T) {
	snap := NewSnapshot(map[string]Fingerprint{
		"c.txt": {}, "a.txt": {}, "B.txt": {}, "b.txt": {},
	})

	assert.Equal(t, []string{"B.txt", "a.txt", "b.txt", "c.txt"}, snap.Names())
}

func TestSnapshot_NamesReturnsCopy(t *testing.T) {
	snap := NewSnapshot(map[string]Fingerprint{"a.txt": {}, "b.txt": {}})

	names := snap.Names()
	names[0] = "zzz"

	assert.Equal(t, []string{"a.txt", "b.txt"}, snap.Names())
}

func TestSnapshot_NilIsEmpty(t *testing.T) {
	var snap *Snapshot

	assert.Equal(t, 0, snap.Len())
	assert.Nil(t, snap.Names())
	assert.False(t, snap.Has("a.txt"))

	_, ok := snap.Get("a.txt")
	assert.False(t, ok)
}

func TestNewSnapshot_Nil(t *testing.T) {
	snap := NewSnapshot(nil)

	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Names())
}

func TestFingerprintOf_StableForUnmodifiedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	first, err := os.Stat(path)
	require.NoError(t, err)
	second, err := os.Stat(path)
	require.NoError(t, err)

	assert.Equal(t, FingerprintOf(first), FingerprintOf(second))
}

func TestFingerprintOf_ChangesWhenModTimeAdvances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	before, err := os.Stat(path)
	require.NoError(t, err)

	later := before.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	after, err := os.Stat(path)
	require.NoError(t, err)

	assert.NotEqual(t, FingerprintOf(before), FingerprintOf(after))
}
