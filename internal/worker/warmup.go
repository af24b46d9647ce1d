// Package worker runs background jobs for the game service.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gaming-library/internal/config"
	"github.com/gaming-library/internal/metrics"
)

// ReferenceRefresher reloads cached catalog reference data
type ReferenceRefresher interface {
	RefreshReferenceData(ctx context.Context) error
}

// WarmupWorker keeps genre and platform lists warm in the catalog cache
type WarmupWorker struct {
	catalog  ReferenceRefresher
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWarmupWorker creates a warmup worker; it does nothing until Start
func NewWarmupWorker(catalog ReferenceRefresher, cfg *config.WarmupConfig, logger *slog.Logger) *WarmupWorker {
	return &WarmupWorker{
		catalog:  catalog,
		interval: cfg.Interval,
		logger:   logger.With("worker", "warmup"),
	}
}

// Start refreshes once right away, then on every interval, until Stop or
// until ctx ends. Starting a running worker is a no-op.
func (w *WarmupWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)

	w.logger.Info("warmup worker started", "interval", w.interval)
	return nil
}

// Stop cancels the loop and waits for an in-flight refresh to return
func (w *WarmupWorker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	w.logger.Info("warmup worker stopped")
	return nil
}

// IsRunning reports whether Start has been called without a matching Stop
func (w *WarmupWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *WarmupWorker) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	tick := time.NewTicker(w.interval)
	defer tick.Stop()

	for {
		_ = w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// RunOnce performs a single refresh. A failure is logged and left for the
// next tick.
func (w *WarmupWorker) RunOnce(ctx context.Context) error {
	began := time.Now()
	err := w.catalog.RefreshReferenceData(ctx)
	metrics.RecordWarmup(err)
	if err != nil {
		w.logger.Error("reference data warmup failed", "error", err)
		return err
	}
	w.logger.Info("reference data warmup completed", "duration", time.Since(began))
	return nil
}
