// Package memory implements the bounded in-process cache tier: three
// pluggable eviction disciplines (LRU/FIFO/LFU), eager TTL expiry on read,
// and synchronous pre-insertion eviction so size never exceeds max_size.
// Structurally this generalizes the teacher's internal/cache/db shard: a
// mutex-guarded map plus discipline-specific ordering bookkeeping, keyed by
// the same xxh3 hash the teacher used.
package memory

import (
	"context"
	"sync"

	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/shared/cachedtime"
	"github.com/tiercache/tiercache/internal/tier"
	"github.com/zeebo/xxh3"
)

// AdmissionControl gates whether an incoming key should displace the
// discipline's chosen eviction victim, per the teacher's bloom/tiny-LFU
// admission filter. The zero value (nil) always admits.
type AdmissionControl interface {
	Record(h uint64)
	Allow(candidate, victim uint64) bool
}

type record struct {
	tier.Record
	accessCount int64
}

// Memory is the bounded in-process tier.
type Memory struct {
	mu        sync.RWMutex
	items     map[uint64]record
	keys      map[uint64]string // hash -> original tier-key, for GetMany/scan/clear
	discipline discipline
	admission AdmissionControl
	maxSize   int
}

// New constructs a memory tier with the eviction discipline named by
// policy ("lru", "fifo", "lfu"; default lru).
func New(cfg *config.Config, admission AdmissionControl) *Memory {
	var d discipline
	switch cfg.EvictionPolicy {
	case config.EvictionFIFO:
		d = newFIFODiscipline()
	case config.EvictionLFU:
		d = newLFUDiscipline()
	default:
		d = newLRUDiscipline()
	}
	return &Memory{
		items:      make(map[uint64]record),
		keys:       make(map[uint64]string),
		discipline: d,
		admission:  admission,
		maxSize:    cfg.CacheMaxSize,
	}
}

func (m *Memory) Name() string { return "memory" }

func hashKey(key string) uint64 {
	return xxh3.HashString(key)
}

func (m *Memory) Get(_ context.Context, key string) (tier.Record, bool, error) {
	h := hashKey(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.items[h]
	if !ok {
		return tier.Record{}, false, nil
	}
	if rec.Expired(cachedtime.Now()) {
		m.removeLocked(h)
		return tier.Record{}, false, nil
	}
	rec.accessCount++
	m.items[h] = rec
	m.discipline.onAccess(h)
	return rec.Record, true, nil
}

func (m *Memory) Set(_ context.Context, key string, rec tier.Record) error {
	h := hashKey(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[h]; exists {
		m.items[h] = record{Record: rec, accessCount: m.items[h].accessCount + 1}
		m.discipline.onAccess(h)
		return nil
	}

	if m.maxSize > 0 && len(m.items) >= m.maxSize && !m.evictLocked(h) {
		return nil
	}

	m.items[h] = record{Record: rec, accessCount: 1}
	m.keys[h] = key
	m.discipline.onInsert(h)
	if m.admission != nil {
		m.admission.Record(h)
	}
	return nil
}

// evictLocked makes room for the incoming candidate key before insertion,
// consulting admission control if configured, and reports whether the
// candidate should still be inserted. Caller holds m.mu.
func (m *Memory) evictLocked(candidate uint64) bool {
	victim, ok := m.discipline.evictOne()
	if !ok {
		return true
	}
	if m.admission != nil && !m.admission.Allow(candidate, victim) {
		// admission control rejects the swap: re-track the victim and drop
		// the candidate's insertion instead.
		m.discipline.onInsert(victim)
		return false
	}
	m.removeLocked(victim)
	return true
}

func (m *Memory) removeLocked(h uint64) {
	delete(m.items, h)
	delete(m.keys, h)
	m.discipline.onDelete(h)
}

func (m *Memory) Delete(_ context.Context, key string) (bool, error) {
	h := hashKey(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[h]; !ok {
		return false, nil
	}
	m.removeLocked(h)
	return true, nil
}

func (m *Memory) GetMany(ctx context.Context, keys []string) (map[string]tier.Record, error) {
	out := make(map[string]tier.Record, len(keys))
	for _, k := range keys {
		if rec, ok, err := m.Get(ctx, k); err != nil {
			return nil, err
		} else if ok {
			out[k] = rec
		}
	}
	return out, nil
}

func (m *Memory) SetMany(ctx context.Context, entries map[string]tier.Record) error {
	for k, rec := range entries {
		if err := m.Set(ctx, k, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ns == "" || ns == "default" {
		m.items = make(map[uint64]record)
		m.keys = make(map[uint64]string)
		m.discipline.clear()
		return nil
	}

	prefix := ns + ":"
	for h, key := range m.keys {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			m.removeLocked(h)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

// Len reports the current entry count, for statistics and tests.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
