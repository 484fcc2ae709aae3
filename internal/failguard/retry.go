package failguard

import (
	"context"
	"time"

	"github.com/tiercache/tiercache/internal/cacheerr"
)

// Guard combines a circuit breaker with retry-with-exponential-backoff
// around calls to one tier. A broken tier still participates in reads as a
// miss and in writes as a logged warning, per spec.md §4.8 — callers
// inspect the returned error's cacheerr.TierError to apply that policy.
type Guard struct {
	tier          string
	breaker       *Breaker
	retryAttempts int
	retryDelay    time.Duration
}

func NewGuard(tierName string, failureThreshold int, resetTimeout time.Duration, retryAttempts int, retryDelay time.Duration) *Guard {
	return &Guard{
		tier:          tierName,
		breaker:       NewBreaker(failureThreshold, resetTimeout),
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
	}
}

// Do runs fn with retry-with-backoff, short-circuiting immediately if the
// breaker is open. Every failure (including the short-circuit) is wrapped
// into a cacheerr.TierError so callers can distinguish "tier unavailable"
// from other failures.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !g.breaker.Allow() {
		return cacheerr.NewTierError(g.tier, cacheerr.ErrTierUnavailable)
	}

	delay := g.retryDelay
	var lastErr error
	attempts := g.retryAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return cacheerr.NewTierError(g.tier, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			g.breaker.RecordSuccess()
			return nil
		}
	}

	g.breaker.RecordFailure()
	return cacheerr.NewTierError(g.tier, lastErr)
}

// IsOpen reports whether the underlying breaker is currently open.
func (g *Guard) IsOpen() bool { return g.breaker.IsOpen() }
