package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/tier"
)

func newMemory(t *testing.T, policy config.EvictionPolicy, maxSize int) *Memory {
	t.Helper()
	return New(&config.Config{EvictionPolicy: policy, CacheMaxSize: maxSize}, nil)
}

func set(t *testing.T, m *Memory, key string) {
	t.Helper()
	require.NoError(t, m.Set(context.Background(), key, tier.Record{Value: []byte(key)}))
}

func get(t *testing.T, m *Memory, key string) bool {
	t.Helper()
	_, ok, err := m.Get(context.Background(), key)
	require.NoError(t, err)
	return ok
}

// TestLRU_EvictsLeastRecentlyUsed exercises the trace from spec.md §8:
// w(a), w(b), g(a), w(c) with max_size=2 evicts b.
func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	m := newMemory(t, config.EvictionLRU, 2)
	set(t, m, "a")
	set(t, m, "b")
	require.True(t, get(t, m, "a"))
	set(t, m, "c")

	require.True(t, get(t, m, "a"))
	require.False(t, get(t, m, "b"))
	require.True(t, get(t, m, "c"))
}

// TestFIFO_EvictsOldestInserted exercises the same trace, which evicts a
// under FIFO since reads never reorder insertion order.
func TestFIFO_EvictsOldestInserted(t *testing.T) {
	m := newMemory(t, config.EvictionFIFO, 2)
	set(t, m, "a")
	set(t, m, "b")
	require.True(t, get(t, m, "a"))
	set(t, m, "c")

	require.False(t, get(t, m, "a"))
	require.True(t, get(t, m, "b"))
	require.True(t, get(t, m, "c"))
}

// TestLFU_EvictsLeastFrequentlyUsed exercises w(a), w(b), g(a), g(a), w(c)
// with max_size=2: a's counter reaches 3, b's stays at 1, so b is evicted.
func TestLFU_EvictsLeastFrequentlyUsed(t *testing.T) {
	m := newMemory(t, config.EvictionLFU, 2)
	set(t, m, "a")
	set(t, m, "b")
	require.True(t, get(t, m, "a"))
	require.True(t, get(t, m, "a"))
	set(t, m, "c")

	require.True(t, get(t, m, "a"))
	require.False(t, get(t, m, "b"))
	require.True(t, get(t, m, "c"))
}

func TestMemory_SizeNeverExceedsMax(t *testing.T) {
	m := newMemory(t, config.EvictionLRU, 3)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		set(t, m, k)
		require.LessOrEqual(t, m.Len(), 3)
	}
}

func TestMemory_DeleteIsIdempotent(t *testing.T) {
	m := newMemory(t, config.EvictionLRU, 2)
	set(t, m, "a")

	ok, err := m.Delete(context.Background(), "a")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Delete(context.Background(), "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemory_ClearRemovesNamespacedKeysOnly(t *testing.T) {
	m := newMemory(t, config.EvictionLRU, 10)
	set(t, m, "tenant-a:x")
	set(t, m, "tenant-b:y")

	require.NoError(t, m.Clear(context.Background(), "tenant-a"))

	require.False(t, get(t, m, "tenant-a:x"))
	require.True(t, get(t, m, "tenant-b:y"))
}

func TestMemory_GetManySetMany(t *testing.T) {
	m := newMemory(t, config.EvictionLRU, 10)
	err := m.SetMany(context.Background(), map[string]tier.Record{
		"a": {Value: []byte("1")},
		"b": {Value: []byte("2")},
	})
	require.NoError(t, err)

	got, err := m.GetMany(context.Background(), []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []byte("1"), got["a"].Value)
}
