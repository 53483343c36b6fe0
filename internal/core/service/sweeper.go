package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SweepFunc receives the outcome of each sweep run.
type SweepFunc func(deleted int, elapsed time.Duration, err error)

// SweeperConfig configures a Sweeper.
type SweeperConfig struct {
	Interval     time.Duration // default 24h
	Retention    time.Duration // default DefaultRetention
	RunOnStartup bool
	Timeout      time.Duration // per run, default 5m
}

// Sweeper runs SessionService.Sweep on a fixed interval, independent of
// request traffic.
type Sweeper struct {
	svc    *SessionService
	cfg    SweeperConfig
	logger *slog.Logger
	notify SweepFunc

	started  atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSweeper creates a stopped Sweeper. notify may be nil.
func NewSweeper(svc *SessionService, cfg SweeperConfig, logger *slog.Logger, notify SweepFunc) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		svc:    svc,
		cfg:    cfg,
		logger: logger,
		notify: notify,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the background loop. It returns immediately.
func (w *Sweeper) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.loop(ctx)
	w.logger.Info("session sweeper started",
		"interval", w.cfg.Interval,
		"retention", w.cfg.Retention,
		"run_on_startup", w.cfg.RunOnStartup)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	if w.started.Load() {
		<-w.doneCh
	}
}

// RunOnce performs a single sweep.
func (w *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	start := time.Now()
	n, err := w.svc.Sweep(ctx, w.cfg.Retention)
	elapsed := time.Since(start)

	if err != nil {
		w.logger.Error("session sweep failed", "error", err, "elapsed", elapsed)
	} else {
		w.logger.Info("session sweep completed", "deleted", n, "elapsed", elapsed)
	}
	if w.notify != nil {
		w.notify(n, elapsed, err)
	}
	return n, err
}

func (w *Sweeper) loop(ctx context.Context) {
	defer close(w.doneCh)

	if w.cfg.RunOnStartup {
		w.RunOnce(ctx)
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
