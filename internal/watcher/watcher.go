// Package watcher re-runs compliance analysis on a fixed interval.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// DefaultInterval matches the hourly schedule used when none is configured.
const DefaultInterval = time.Hour

// Analyzer runs one analysis and delivers its owner alerts.
// *analysis.Runner satisfies it.
type Analyzer interface {
	Run(ctx context.Context) (types.Report, error)
	Notify(ctx context.Context, rep types.Report) (int, error)
}

// Status describes the watcher's most recent run.
type Status struct {
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"lastRun,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Interval  string    `json:"interval"`
}

// Watcher periodically analyzes ticket sources and keeps the latest report.
type Watcher struct {
	analyzer   Analyzer
	logger     *slog.Logger
	interval   time.Duration
	runOnStart bool
	notify     bool

	mu     sync.RWMutex
	latest *types.Report
	status Status

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Watcher.
func New(a Analyzer, cfg types.WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	interval := DefaultInterval
	if cfg.Interval != "" {
		d, err := time.ParseDuration(cfg.Interval)
		if err != nil {
			return nil, fmt.Errorf("parsing watcher interval: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("watcher interval must be positive, got %s", cfg.Interval)
		}
		interval = d
	}
	return &Watcher{
		analyzer:   a,
		logger:     logger,
		interval:   interval,
		runOnStart: cfg.RunOnStart,
		notify:     cfg.Notify,
		status:     Status{Interval: interval.String()},
	}, nil
}

// Start begins the polling loop. It returns immediately.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.logger.Info("watcher started", "interval", w.interval, "runOnStart", w.runOnStart)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		if w.runOnStart {
			w.RunOnce(ctx)
		}

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("watcher stopping")
				return
			case <-ticker.C:
				w.RunOnce(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run, bounded by ctx.
func (w *Watcher) Stop(ctx context.Context) {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("watcher stopped")
	case <-ctx.Done():
		w.logger.Warn("watcher stop timed out")
	}
}

// RunOnce performs one analysis and, when configured, dispatches alerts.
// A failed run keeps the previous report.
func (w *Watcher) RunOnce(ctx context.Context) {
	rep, err := w.analyzer.Run(ctx)

	w.mu.Lock()
	w.status.Runs++
	w.status.LastRun = time.Now()
	if err != nil {
		w.status.Failures++
		w.status.LastError = err.Error()
	} else {
		w.status.LastError = ""
		w.latest = &rep
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("analysis run failed", "error", err)
		return
	}
	if !w.notify {
		return
	}
	if _, err := w.analyzer.Notify(ctx, rep); err != nil {
		w.logger.Warn("owner alerts incomplete", "run", rep.RunID, "error", err)
	}
}

// Latest returns the most recent successful report.
func (w *Watcher) Latest() (types.Report, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.latest == nil {
		return types.Report{}, false
	}
	return *w.latest, true
}

// Status returns a snapshot of the run counters.
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}
