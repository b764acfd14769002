// Package preview renders the leading bytes of a file as binary digits.
// It is a diagnostic aid only; nothing in change detection depends on it.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/adalundhe/pollwatch/core/watcher"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// DefaultBytes is the number of leading bytes sampled from a file.
	DefaultBytes = 50

	// DefaultGroup is the number of bytes rendered per line.
	DefaultGroup = 10

	footerWidth = 48
)

// ErrNotRegular is wrapped by Sample when the path is not a regular file.
var ErrNotRegular = errors.New("not a regular file")

// =============================================================================
// Renderer
// =============================================================================

// Renderer samples and formats file prefixes.
type Renderer struct {
	// Bytes is the maximum number of bytes read. Default: 50.
	Bytes int

	// Group is the number of bytes per output line. Default: 10.
	Group int
}

// NewRenderer returns a renderer with defaults applied to non-positive values.
func NewRenderer(bytes, group int) Renderer {
	if bytes <= 0 {
		bytes = DefaultBytes
	}
	if group <= 0 {
		group = DefaultGroup
	}
	return Renderer{Bytes: bytes, Group: group}
}

// Sample reads up to r.Bytes leading bytes of the file. Only regular files
// are read; pipes, devices and directories are refused without blocking.
// Failures are returned as *watcher.PreviewReadError.
func (r Renderer) Sample(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &watcher.PreviewReadError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &watcher.PreviewReadError{Path: path, Err: ErrNotRegular}
	}

	// The file can be swapped for a FIFO after Stat; O_NONBLOCK keeps the
	// open from waiting on a writer.
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, &watcher.PreviewReadError{Path: path, Err: err}
	}
	defer f.Close()

	if info, err = f.Stat(); err != nil {
		return nil, &watcher.PreviewReadError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &watcher.PreviewReadError{Path: path, Err: ErrNotRegular}
	}

	buf := make([]byte, r.Bytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &watcher.PreviewReadError{Path: path, Err: err}
	}
	return buf[:n], nil
}

// Format renders data as 8-bit binary groups, r.Group bytes per line.
func (r Renderer) Format(data []byte) string {
	group := r.Group
	if group <= 0 {
		group = DefaultGroup
	}

	var b strings.Builder
	for i, c := range data {
		fmt.Fprintf(&b, "%08b", c)
		switch {
		case (i+1)%group == 0 || i == len(data)-1:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Write samples the file at path and writes the framed preview to w.
func (r Renderer) Write(w io.Writer, path string) error {
	data, err := r.Sample(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, ">>> Binary Preview (first %d bytes) for %s:\n", r.Bytes, filepath.Base(path))
	io.WriteString(w, r.Format(data))
	_, err = fmt.Fprintln(w, strings.Repeat("-", footerWidth))
	return err
}

// =============================================================================
// Consumer
// =============================================================================

// Consumer previews files in the watched directory as their change events
// arrive.
type Consumer struct {
	dir      string
	renderer Renderer
	out      io.Writer
}

// NewConsumer creates a preview consumer for files under dir.
func NewConsumer(dir string, renderer Renderer, out io.Writer) *Consumer {
	if out == nil {
		out = os.Stdout
	}
	return &Consumer{dir: dir, renderer: renderer, out: out}
}

// Name implements watcher.Consumer.
func (c *Consumer) Name() string {
	return "preview"
}

// Consume implements watcher.Consumer. Deleted files are ignored.
func (c *Consumer) Consume(_ context.Context, ev watcher.ChangeEvent) error {
	if !ev.HasContent() {
		return nil
	}
	return c.renderer.Write(c.out, filepath.Join(c.dir, ev.Name))
}
