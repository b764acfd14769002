package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the default time between poll cycles.
const DefaultInterval = time.Second

// =============================================================================
// Configuration
// =============================================================================

// Consumer receives the change events dispatched by the engine.
type Consumer interface {
	// Name identifies the consumer in log output.
	Name() string

	// Consume handles a single event. A returned error is reported but
	// never stops the engine.
	Consume(ctx context.Context, ev ChangeEvent) error
}

// EngineConfig configures the change engine.
type EngineConfig struct {
	// Dir is the watched directory (required). It is created on Init if
	// missing.
	Dir string

	// Interval is the wait between poll cycles. Default: 1s.
	Interval time.Duration

	// Include and Exclude are name patterns passed to the directory scanner.
	Include []string
	Exclude []string

	// Scanner overrides the default DirScanner built from Dir.
	Scanner Scanner

	// Console receives every event first.
	Console Consumer

	// Sinks receive every event, in order, after the console.
	Sinks []Consumer

	// Preview receives Created and Modified events last. Deleted files
	// have nothing to preview.
	Preview Consumer

	// Logger receives scan and dispatch failures. Default: slog.Default().
	Logger *slog.Logger
}

// Validate checks that the configuration is valid.
func (c *EngineConfig) Validate() error {
	if c.Dir == "" {
		return ErrEmptyDir
	}

	if c.Interval <= 0 {
		return ErrInvalidInterval
	}

	return nil
}

// EngineStats is a point-in-time view of the engine counters.
type EngineStats struct {
	Cycles           int64
	ScanFailures     int64
	Events           int64
	DispatchFailures int64
	BaselineFiles    int
}

// =============================================================================
// Engine
// =============================================================================

// Engine drives the poll loop: scan, diff against the baseline, dispatch
// each event, replace the baseline, wait. All engine state lives here; the
// baseline snapshot is replaced at cycle boundaries and never mutated.
type Engine struct {
	config  EngineConfig
	scanner Scanner
	logger  *slog.Logger

	mu       sync.RWMutex
	baseline *Snapshot

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	cycles           atomic.Int64
	scanFailures     atomic.Int64
	events           atomic.Int64
	dispatchFailures atomic.Int64
}

// NewEngine creates a change engine. No filesystem access happens until
// Init or Run.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	scanner := config.Scanner
	if scanner == nil {
		ds, err := NewDirScanner(ScanConfig{
			Dir:     config.Dir,
			Include: config.Include,
			Exclude: config.Exclude,
		})
		if err != nil {
			return nil, err
		}
		scanner = ds
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		config:  config,
		scanner: scanner,
		logger:  logger.With(slog.String("dir", config.Dir)),
		stopCh:  make(chan struct{}),
	}, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Init creates the watched directory if needed and takes the baseline
// snapshot. A baseline failure is fatal: without it there is nothing to
// diff against.
func (e *Engine) Init(ctx context.Context) error {
	if info, err := os.Stat(e.config.Dir); err == nil && !info.IsDir() {
		return fmt.Errorf("%s: %w", e.config.Dir, ErrNotDir)
	}
	if err := os.MkdirAll(e.config.Dir, 0o755); err != nil {
		return fmt.Errorf("create watched directory: %w", err)
	}

	snap, err := e.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("baseline scan: %w", err)
	}

	e.setBaseline(snap)
	e.logger.Info("baseline taken", slog.Int("files", snap.Len()))
	return nil
}

// Run initializes the engine if needed and polls until ctx is cancelled or
// Stop is called. It returns nil on a cooperative stop and an error only if
// the engine could not start.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	if e.Baseline() == nil {
		if err := e.Init(ctx); err != nil {
			return err
		}
	}

	e.logger.Info("watching", slog.Duration("interval", e.config.Interval))

	for {
		if e.shouldStop(ctx) {
			return nil
		}

		// Scan failures are logged inside Poll and retried next cycle.
		_, _ = e.Poll(ctx)

		if !e.wait(ctx) {
			return nil
		}
	}
}

// Stop asks a running loop to exit at its next check. Safe to call more
// than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
}

// IsRunning reports whether Run is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// shouldStop checks for cancellation without blocking.
func (e *Engine) shouldStop(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-e.stopCh:
		return true
	default:
		return false
	}
}

// wait sleeps for one interval. It returns false if the engine was stopped
// while waiting.
func (e *Engine) wait(ctx context.Context) bool {
	timer := time.NewTimer(e.config.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-e.stopCh:
		return false
	case <-timer.C:
		return !e.shouldStop(ctx)
	}
}

// =============================================================================
// Poll Cycle
// =============================================================================

// Poll runs one cycle: scan, diff, dispatch, then replace the baseline.
// On a scan failure the baseline is kept as it was, no events are produced
// and the *ScanError is returned. A scan cut short by ctx is not a failure:
// it is neither logged nor counted, and ctx.Err() is returned.
func (e *Engine) Poll(ctx context.Context) ([]ChangeEvent, error) {
	baseline := e.Baseline()
	if baseline == nil {
		return nil, ErrNotInitialized
	}

	current, err := e.scanner.Scan(ctx)
	if isCancellation(err) {
		return nil, err
	}
	e.cycles.Add(1)

	if err != nil {
		e.scanFailures.Add(1)
		e.logger.Warn("scan failed, keeping previous baseline",
			slog.Any("error", err),
			slog.Int("baseline_files", baseline.Len()))
		return nil, err
	}

	events := Diff(baseline, current)
	for _, ev := range events {
		e.dispatch(ctx, ev)
	}
	e.events.Add(int64(len(events)))

	e.setBaseline(current)
	return events, nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// dispatch hands one event to the consumers in their fixed order.
func (e *Engine) dispatch(ctx context.Context, ev ChangeEvent) {
	e.deliver(ctx, e.config.Console, ev)

	for _, sink := range e.config.Sinks {
		e.deliver(ctx, sink, ev)
	}

	if ev.HasContent() {
		e.deliver(ctx, e.config.Preview, ev)
	}
}

// deliver calls one consumer and reports its failure, if any.
func (e *Engine) deliver(ctx context.Context, c Consumer, ev ChangeEvent) {
	if c == nil {
		return
	}

	err := c.Consume(ctx, ev)
	if err == nil {
		return
	}

	attrs := []any{
		slog.String("consumer", c.Name()),
		slog.String("file", ev.Name),
		slog.String("change", ev.Operation.String()),
		slog.Any("error", err),
	}

	var previewErr *PreviewReadError
	if errors.As(err, &previewErr) {
		e.logger.Debug("preview skipped", attrs...)
		return
	}

	e.dispatchFailures.Add(1)

	var sinkErr *SinkWriteError
	if errors.As(err, &sinkErr) {
		e.logger.Error("change not persisted", attrs...)
		return
	}
	e.logger.Error("dispatch failed", attrs...)
}

// =============================================================================
// State
// =============================================================================

// Baseline returns the snapshot the next cycle will diff against, or nil
// before Init.
func (e *Engine) Baseline() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseline
}

func (e *Engine) setBaseline(s *Snapshot) {
	e.mu.Lock()
	e.baseline = s
	e.mu.Unlock()
}

// Stats returns the current engine counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Cycles:           e.cycles.Load(),
		ScanFailures:     e.scanFailures.Load(),
		Events:           e.events.Load(),
		DispatchFailures: e.dispatchFailures.Load(),
		BaselineFiles:    e.Baseline().Len(),
	}
}
