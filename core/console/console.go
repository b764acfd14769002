// Package console prints change notices for the terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/adalundhe/pollwatch/core/watcher"
)

// Notifier writes one line per change event, e.g. "[CREATED] a.txt".
type Notifier struct {
	out io.Writer
}

// NewNotifier creates a notifier writing to out, or stdout if out is nil.
func NewNotifier(out io.Writer) *Notifier {
	if out == nil {
		out = os.Stdout
	}
	return &Notifier{out: out}
}

// Name implements watcher.Consumer.
func (n *Notifier) Name() string {
	return "console"
}

// Consume implements watcher.Consumer.
func (n *Notifier) Consume(_ context.Context, ev watcher.ChangeEvent) error {
	_, err := fmt.Fprintln(n.out, FormatNotice(ev))
	return err
}

// FormatNotice renders the console line for ev.
func FormatNotice(ev watcher.ChangeEvent) string {
	return fmt.Sprintf("[%s] %s", ev.Operation, ev.Name)
}
