// Package signal turns OS interrupts into a graceful stop of a running loop.
package signal

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// Stopper is anything that can be asked to stop cooperatively.
type Stopper interface {
	Stop()
}

// OSSignalHandler stops target on the first SIGINT and cancels the run
// context on a second SIGINT or on SIGTERM. SIGHUP runs the reload hook.
type OSSignalHandler struct {
	target Stopper
	cancel context.CancelFunc
	out    io.Writer
	reload func()

	mu                sync.Mutex
	running           bool
	interruptReceived atomic.Bool
	stopCh            chan struct{}
	sigCh             chan os.Signal
}

// NewOSSignalHandler creates a handler. out receives a short notice per
// signal and may be nil.
func NewOSSignalHandler(target Stopper, cancel context.CancelFunc, out io.Writer) *OSSignalHandler {
	if out == nil {
		out = io.Discard
	}
	return &OSSignalHandler{
		target: target,
		cancel: cancel,
		out:    out,
		stopCh: make(chan struct{}),
		sigCh:  make(chan os.Signal, 1),
	}
}

// OnReload sets the function run on SIGHUP. Call it before Start.
func (h *OSSignalHandler) OnReload(fn func()) {
	h.mu.Lock()
	h.reload = fn
	h.mu.Unlock()
}

func (h *OSSignalHandler) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return
	}

	h.running = true
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go h.listen()
}

func (h *OSSignalHandler) listen() {
	for {
		select {
		case <-h.stopCh:
			return
		case sig := <-h.sigCh:
			h.handleSignal(sig)
		}
	}
}

func (h *OSSignalHandler) handleSignal(sig os.Signal) {
	switch sig {
	case syscall.SIGINT:
		h.handleInterrupt()
	case syscall.SIGTERM:
		h.handleTerminate()
	case syscall.SIGHUP:
		h.handleHangup()
	}
}

func (h *OSSignalHandler) handleInterrupt() {
	if h.interruptReceived.Swap(true) {
		io.WriteString(h.out, "\nInterrupted again. Aborting...\n")
		h.cancel()
		return
	}

	io.WriteString(h.out, "\nInterrupted. Stopping after the current cycle (Ctrl+C again to abort)...\n")
	h.target.Stop()
}

func (h *OSSignalHandler) handleHangup() {
	h.mu.Lock()
	reload := h.reload
	h.mu.Unlock()

	if reload == nil {
		return
	}
	io.WriteString(h.out, "\nReloading configuration...\n")
	reload()
}

func (h *OSSignalHandler) handleTerminate() {
	h.target.Stop()
	h.cancel()
}

func (h *OSSignalHandler) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return
	}

	signal.Stop(h.sigCh)
	close(h.stopCh)
	h.running = false
}

func (h *OSSignalHandler) IsRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}
