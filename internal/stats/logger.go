package stats

import (
	"context"
	"log/slog"
	"time"
)

// delta converts cumulative counters into a per-interval delta. If a
// counter was reset (cur < prev), cur is reported as the delta, matching
// the teacher's internal/telemetry/sampler.go delta().
func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

// Logger periodically logs a delta snapshot of every tier's counters,
// generalizing the teacher's internal/telemetry.Logs across an arbitrary
// tier set instead of one hardcoded cache.
type Logger struct {
	collector *Collector
	logger    *slog.Logger
	interval  time.Duration
	cancel    context.CancelFunc
}

func NewLogger(collector *Collector, logger *slog.Logger, interval time.Duration) *Logger {
	return &Logger{collector: collector, logger: logger, interval: interval}
}

// Run starts the background logging loop; it stops when ctx is done or
// Close is called.
func (l *Logger) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	go l.loop(ctx)
}

func (l *Logger) Close() error {
	if l.cancel != nil {
		l.cancel()
	}
	return nil
}

func (l *Logger) loop(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	prev := l.collector.Snapshot()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := l.collector.Snapshot()
			for tierName, curSnap := range cur {
				prevSnap := prev[tierName]
				l.logger.Info("tier_stats",
					"tier", tierName,
					"interval", l.interval.String(),
					"hits", delta(prevSnap.Hits, curSnap.Hits),
					"misses", delta(prevSnap.Misses, curSnap.Misses),
					"sets", delta(prevSnap.Sets, curSnap.Sets),
					"deletes", delta(prevSnap.Deletes, curSnap.Deletes),
					"evictions", delta(prevSnap.Evictions, curSnap.Evictions),
					"errors", delta(prevSnap.Errors, curSnap.Errors),
				)
			}
			prev = cur
		}
	}
}
