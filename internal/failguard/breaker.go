// Package failguard wraps calls to externally-observable tiers (persistent,
// shared) with retry-with-backoff and a per-tier circuit breaker, per
// spec.md §4.8.
package failguard

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/internal/shared/cachedtime"
)

// Breaker is a three-state circuit breaker: closed, open, half-open. Unlike
// a formal state enum it tracks state the way the original Python
// implementation does — a failure counter plus a last-failure timestamp —
// with half-open inferred rather than persisted: while open, the first
// call after resetTimeout has elapsed is let through as the probe, and its
// outcome alone decides whether the breaker closes or stays open.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold int
	resetTimeout     time.Duration

	failures        int
	open            bool
	lastFailureTime time.Time
}

func NewBreaker(failureThreshold int, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// Allow reports whether a call should proceed. When the breaker is open
// and the cooldown hasn't elapsed, the call is short-circuited.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if cachedtime.Since(b.lastFailureTime) >= b.resetTimeout {
		return true // half-open probe
	}
	return false
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure increments the failure count and opens the breaker once the
// threshold is reached, or immediately re-opens it if this failure was the
// half-open probe.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailureTime = cachedtime.Now()
	if b.open {
		// the half-open probe failed: stay open, cooldown restarts.
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.open = true
	}
}

// IsOpen reports the breaker's raw state, for statistics.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}
