package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalLimiter spaces calls to the upstream data provider at least a
// minimum interval apart, process-wide. Every consumer (signal worker,
// websocket broadcaster, on-demand analysis) shares one instance.
//
// Callers are served strictly in arrival order: each Acquire reserves the
// next free slot under the mutex before sleeping, so a later caller can
// never be granted an earlier slot. The label identifies the caller in logs
// and carries no priority.
type IntervalLimiter struct {
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	next time.Time // start of the next free slot
}

// NewIntervalLimiter creates a limiter with the given minimum spacing.
func NewIntervalLimiter(interval time.Duration, logger *zap.Logger) *IntervalLimiter {
	return &IntervalLimiter{
		interval: interval,
		logger:   logger,
	}
}

// Acquire blocks until the caller may issue the next upstream call.
// It only fails when ctx is cancelled; the reserved slot stands either way,
// so a cancelled waiter never lets a later caller violate the spacing.
func (l *IntervalLimiter) Acquire(ctx context.Context, label string) error {
	now := time.Now()

	l.mu.Lock()
	wakeAt := l.next
	if wakeAt.Before(now) {
		wakeAt = now
	}
	l.next = wakeAt.Add(l.interval)
	l.mu.Unlock()

	wait := time.Until(wakeAt)
	if wait <= 0 {
		return nil
	}

	l.logger.Warn("Rate limiter delaying upstream call",
		zap.String("caller", label),
		zap.Duration("wait", wait),
	)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the configured minimum spacing.
func (l *IntervalLimiter) Interval() time.Duration {
	return l.interval
}
