package syncer

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultProbeInterval = 15 * time.Second

	// offlineThreshold is how many consecutive probe failures it takes to
	// declare the device offline. A single dropped probe on a flaky field
	// connection should not flip the state.
	offlineThreshold = 2
)

// Watcher turns API reachability into drain triggers: one drain at process
// start when the device is already online, and one on every offline-to-online
// transition. There is no other scheduling; a persistently failing target is
// only re-attempted on the next transition or explicit user action.
type Watcher struct {
	controller *Controller
	prober     Prober
	interval   time.Duration
	logger     *slog.Logger

	online   bool
	failures int
}

// NewWatcher creates a watcher probing at the given interval (the default is
// used when interval is zero or negative).
func NewWatcher(controller *Controller, prober Prober, interval time.Duration, logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		controller: controller,
		prober:     prober,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks, probing connectivity until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	// Process-start trigger: drain immediately when already online.
	w.online = w.probe(ctx)
	if w.online {
		w.logger.Info("online at start, draining queue")
		w.drain(ctx)
	} else {
		w.logger.Info("offline at start, waiting for connectivity")
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		reachable := w.probe(ctx)
		switch {
		case reachable && !w.online:
			w.online = true
			w.logger.Info("connectivity restored, draining queue")
			w.drain(ctx)
		case !reachable && w.online && w.failures >= offlineThreshold:
			w.online = false
			w.logger.Info("connectivity lost")
		}
	}
}

// probe runs one reachability check and tracks consecutive failures.
func (w *Watcher) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := w.prober.Ping(probeCtx); err != nil {
		w.failures++
		w.logger.Debug("probe failed", "consecutive", w.failures, "error", err)
		return false
	}
	w.failures = 0
	return true
}

func (w *Watcher) drain(ctx context.Context) {
	report, err := w.controller.DrainAll(ctx)
	if err != nil {
		w.logger.Error("drain aborted by store failure", "error", err)
		return
	}
	if report.FailureErr != nil {
		w.logger.Warn("drain stopped early",
			"delivered", report.Delivered,
			"remaining", report.Remaining,
			"failed_target", report.FailedTarget)
	}
}
