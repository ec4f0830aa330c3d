package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper is the watchdog's side channel: it polls for workflows whose
// deadline passed and force-fails them, independent of the coordinator's
// control flow. Racing a normal completion is benign because Fail only
// touches records that are still running.
type Reaper struct {
	watchdog *RedisWatchdog
	manager  *Manager
	interval time.Duration
	logger   *zap.Logger
}

// NewReaper creates a reaper polling at the given interval.
func NewReaper(watchdog *RedisWatchdog, manager *Manager, interval time.Duration, logger *zap.Logger) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reaper{watchdog: watchdog, manager: manager, interval: interval, logger: logger}
}

// Run polls until the context is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep fails every workflow whose watchdog deadline has passed.
func (r *Reaper) Sweep(ctx context.Context) {
	due, err := r.watchdog.Due(ctx, time.Now())
	if err != nil {
		r.logger.Warn("watchdog sweep failed", zap.Error(err))
		return
	}
	for _, id := range due {
		if err := r.manager.Fail(ctx, id, "watchdog deadline exceeded"); err != nil {
			r.logger.Warn("failed to reap workflow",
				zap.String("workflow_id", id), zap.Error(err))
			continue
		}
		r.logger.Info("workflow reaped", zap.String("workflow_id", id))
	}
}
