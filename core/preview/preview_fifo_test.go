//go:build linux || darwin

package preview

import (
	"bytes"
	"context"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/adalundhe/pollwatch/core/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFIFO(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, syscall.Mkfifo(path, 0644))
	return path
}

func TestRenderer_SampleFIFODoesNotBlock(t *testing.T) {
	path := makeFIFO(t, t.TempDir(), "pipe")

	done := make(chan error, 1)
	go func() {
		_, err := NewRenderer(50, 10).Sample(path)
		done <- err
	}()

	select {
	case err := <-done:
		var readErr *watcher.PreviewReadError
		require.ErrorAs(t, err, &readErr)
		assert.Equal(t, path, readErr.Path)
		assert.ErrorIs(t, err, ErrNotRegular)
	case <-time.After(2 * time.Second):
		t.Fatal("Sample blocked on a FIFO with no writer")
	}
}

func TestConsumer_FIFOIsReadError(t *testing.T) {
	dir := t.TempDir()
	makeFIFO(t, dir, "pipe")

	var out bytes.Buffer
	c := NewConsumer(dir, NewRenderer(50, 10), &out)

	done := make(chan error, 1)
	go func() {
		done <- c.Consume(context.Background(), watcher.ChangeEvent{Name: "pipe", Operation: watcher.OpCreate})
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotRegular)
		assert.Empty(t, out.String())
	case <-time.After(2 * time.Second):
		t.Fatal("Consume blocked on a FIFO with no writer")
	}
}
