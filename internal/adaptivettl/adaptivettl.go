// Package adaptivettl tracks per-key access statistics and derives an
// effective TTL from them, per spec.md §4.7. The access table is the same
// shape of bookkeeping the teacher's model.Entry keeps inline
// (access_count, last_access_at), pulled out here because the orchestrator
// needs it independent of any one tier.
package adaptivettl

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/shared/cachedtime"
)

type stat struct {
	accessCount  int64
	lastAccessAt time.Time
}

// Tracker is the bounded per-key access-stat table and the effective-TTL
// formula. The table itself is a recency-bounded LRU cache rather than a
// bare map: spec.md §4.7 only requires the table stay within
// cache_max_size and age out the stalest entries, which is exactly what an
// LRU eviction policy gives for free instead of a manual oldest-scan.
// Safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	cfg   *config.AdaptiveTTLCfg
	table *lru.Cache[string, *stat]
}

func New(cfg *config.AdaptiveTTLCfg, maxSize int) *Tracker {
	if maxSize <= 0 {
		maxSize = 1
	}
	table, _ := lru.New[string, *stat](maxSize)
	return &Tracker{cfg: cfg, table: table}
}

// RecordAccess increments the access counter for key and returns the
// updated access count, used both on read hits and on writes per spec.md
// §4.6/§4.7.
func (t *Tracker) RecordAccess(key string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.table.Get(key)
	if !ok {
		s = &stat{}
	}
	s.accessCount++
	s.lastAccessAt = cachedtime.Now()
	t.table.Add(key, s)
	return s.accessCount
}

// Sweep ages out entries untouched since cutoff, bounding table growth
// even when the LRU capacity alone hasn't forced eviction yet. Nothing in
// this module calls Sweep on a schedule; callers invoke it themselves.
func (t *Tracker) Sweep(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, key := range t.table.Keys() {
		if s, ok := t.table.Peek(key); ok && s.lastAccessAt.Before(cutoff) {
			t.table.Remove(key)
		}
	}
}

// EffectiveTTL computes the effective TTL for key given its current access
// count and the configured or overridden base TTL, per spec.md §4.7's
// closed form. The contract is monotonic: higher access_count never
// shortens the result.
func (t *Tracker) EffectiveTTL(key string, base time.Duration) time.Duration {
	if t.cfg == nil || !t.cfg.Enabled() {
		return base
	}

	t.mu.Lock()
	s, ok := t.table.Peek(key)
	var accessCount int64
	if ok {
		accessCount = s.accessCount
	}
	t.mu.Unlock()

	if accessCount < t.cfg.AccessCountThreshold || t.cfg.AccessCountThreshold <= 0 {
		return base
	}

	k := math.Floor(math.Log(float64(accessCount)/float64(t.cfg.AccessCountThreshold)) / math.Log(2))
	eff := float64(base) * math.Pow(t.cfg.AdjustmentFactor, k)

	min := float64(t.cfg.Min)
	max := float64(t.cfg.Max)
	if min > 0 && eff < min {
		eff = min
	}
	if max > 0 && eff > max {
		eff = max
	}
	return time.Duration(eff)
}

// Touch records an access and returns the resulting effective TTL in one
// step, for callers (orchestrator read/write paths) that always do both.
func (t *Tracker) Touch(key string, base time.Duration) time.Duration {
	t.RecordAccess(key)
	return t.EffectiveTTL(key, base)
}
