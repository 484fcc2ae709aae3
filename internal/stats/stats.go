// Package stats implements the engine's statistics collector: atomic
// hit/miss/set/delete/eviction/error counters per tier plus a latency
// distribution, and a periodic delta-snapshot logger generalized from the
// teacher's internal/telemetry package. get_stats() (spec.md §4.6) reads
// from Collector.Snapshot.
package stats

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/tiercache/tiercache/internal/cacheerr"
)

// ErrorCategory groups errors the way spec.md §7's taxonomy does, so
// get_stats() can report error counts per failure kind instead of one
// opaque total.
type ErrorCategory string

const (
	CategoryTierUnavailable ErrorCategory = "tier_unavailable"
	CategorySerialization   ErrorCategory = "serialization"
	CategoryIntegrity       ErrorCategory = "integrity"
	CategoryKey             ErrorCategory = "key"
	CategoryConfig          ErrorCategory = "config"
	CategoryOther           ErrorCategory = "other"
)

var errorCategories = []ErrorCategory{
	CategoryTierUnavailable, CategorySerialization, CategoryIntegrity,
	CategoryKey, CategoryConfig, CategoryOther,
}

// ClassifyError maps an error from the cacheerr taxonomy to its category,
// falling back to CategoryOther for anything it doesn't wrap.
func ClassifyError(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryOther
	case errors.Is(err, cacheerr.ErrTierUnavailable):
		return CategoryTierUnavailable
	case errors.Is(err, cacheerr.ErrSerialization):
		return CategorySerialization
	case errors.Is(err, cacheerr.ErrIntegrity):
		return CategoryIntegrity
	case errors.Is(err, cacheerr.ErrInvalidKey):
		return CategoryKey
	case errors.Is(err, cacheerr.ErrConfig):
		return CategoryConfig
	default:
		return CategoryOther
	}
}

// TierCounters holds the monotonic atomic counters for one tier.
type TierCounters struct {
	Hits       atomic.Uint64
	Misses     atomic.Uint64
	Sets       atomic.Uint64
	Deletes    atomic.Uint64
	Evictions  atomic.Uint64
	Errors     atomic.Uint64
	byCategory map[ErrorCategory]*atomic.Uint64
}

func newTierCounters() *TierCounters {
	tc := &TierCounters{byCategory: make(map[ErrorCategory]*atomic.Uint64, len(errorCategories))}
	for _, cat := range errorCategories {
		tc.byCategory[cat] = &atomic.Uint64{}
	}
	return tc
}

// Snapshot is a point-in-time readout of one tier's counters.
type Snapshot struct {
	Hits, Misses, Sets, Deletes, Evictions, Errors uint64
	ErrorsByCategory                               map[ErrorCategory]uint64
}

func (c *TierCounters) snapshot() Snapshot {
	byCategory := make(map[ErrorCategory]uint64, len(c.byCategory))
	for cat, ctr := range c.byCategory {
		byCategory[cat] = ctr.Load()
	}
	return Snapshot{
		Hits:             c.Hits.Load(),
		Misses:           c.Misses.Load(),
		Sets:             c.Sets.Load(),
		Deletes:          c.Deletes.Load(),
		Evictions:        c.Evictions.Load(),
		Errors:           c.Errors.Load(),
		ErrorsByCategory: byCategory,
	}
}

// Collector aggregates per-tier counters and a latency distribution across
// the whole engine.
type Collector struct {
	mu      sync.RWMutex
	tiers   map[string]*TierCounters
	latency *ddsketch.DDSketch
}

func New() *Collector {
	sketch, _ := ddsketch.NewDefaultDDSketch(0.01)
	return &Collector{
		tiers:   make(map[string]*TierCounters),
		latency: sketch,
	}
}

func (c *Collector) tierCounters(name string) *TierCounters {
	c.mu.RLock()
	tc, ok := c.tiers[name]
	c.mu.RUnlock()
	if ok {
		return tc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tc, ok = c.tiers[name]; ok {
		return tc
	}
	tc = newTierCounters()
	c.tiers[name] = tc
	return tc
}

func (c *Collector) RecordHit(tier string)      { c.tierCounters(tier).Hits.Add(1) }
func (c *Collector) RecordMiss(tier string)     { c.tierCounters(tier).Misses.Add(1) }
func (c *Collector) RecordSet(tier string)      { c.tierCounters(tier).Sets.Add(1) }
func (c *Collector) RecordDelete(tier string)   { c.tierCounters(tier).Deletes.Add(1) }
func (c *Collector) RecordEviction(tier string) { c.tierCounters(tier).Evictions.Add(1) }

// RecordError increments tier's flat error count and the per-category
// counter ClassifyError derives from err, per spec.md §7.
func (c *Collector) RecordError(tier string, err error) {
	tc := c.tierCounters(tier)
	tc.Errors.Add(1)
	tc.byCategory[ClassifyError(err)].Add(1)
}

// RecordLatency adds a single operation latency sample in seconds to the
// engine-wide distribution.
func (c *Collector) RecordLatency(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.latency.Add(seconds)
}

// LatencyQuantile reads a quantile (e.g. 0.5, 0.99) from the latency
// distribution, in seconds.
func (c *Collector) LatencyQuantile(q float64) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latency.GetValueAtQuantile(q)
}

// Snapshot returns a per-tier counter readout, for get_stats().
func (c *Collector) Snapshot() map[string]Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Snapshot, len(c.tiers))
	for name, tc := range c.tiers {
		out[name] = tc.snapshot()
	}
	return out
}
