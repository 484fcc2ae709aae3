package memoize

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/orchestrator"
	"github.com/tiercache/tiercache/internal/stats"
	"github.com/tiercache/tiercache/internal/tier"
)

type fakeTier struct {
	items map[string]tier.Record
}

func newFakeTier() *fakeTier { return &fakeTier{items: make(map[string]tier.Record)} }

func (f *fakeTier) Name() string { return "memory" }
func (f *fakeTier) Get(_ context.Context, key string) (tier.Record, bool, error) {
	r, ok := f.items[key]
	return r, ok, nil
}
func (f *fakeTier) Set(_ context.Context, key string, rec tier.Record) error {
	f.items[key] = rec
	return nil
}
func (f *fakeTier) Delete(_ context.Context, key string) (bool, error) {
	_, ok := f.items[key]
	delete(f.items, key)
	return ok, nil
}
func (f *fakeTier) GetMany(_ context.Context, keys []string) (map[string]tier.Record, error) {
	out := make(map[string]tier.Record)
	for _, k := range keys {
		if r, ok := f.items[k]; ok {
			out[k] = r
		}
	}
	return out, nil
}
func (f *fakeTier) SetMany(_ context.Context, entries map[string]tier.Record) error {
	for k, v := range entries {
		f.items[k] = v
	}
	return nil
}
func (f *fakeTier) Clear(_ context.Context, _ string) error {
	f.items = make(map[string]tier.Record)
	return nil
}
func (f *fakeTier) Close() error { return nil }

func testOrchestrator() *orchestrator.Orchestrator {
	cfg := &config.Config{Namespace: "default", CacheMaxSize: 100, WriteThrough: true, ReadThrough: true}
	cfg.AdjustConfig()
	return orchestrator.New(cfg, []tier.Tier{newFakeTier()}, stats.New())
}

func TestWrap_CachesResultAcrossCalls(t *testing.T) {
	o := testOrchestrator()
	calls := 0

	square := func(_ context.Context, n int64) (int64, error) {
		calls++
		return n * n, nil
	}

	memoized := Wrap(o, time.Minute, func(n int64) string {
		return fmt.Sprintf("square:%d", n)
	}, square)

	v1, err := memoized(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, int64(16), v1)

	v2, err := memoized(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, int64(16), v2)

	require.Equal(t, 1, calls, "second call should hit the cache, not recompute")
}

func TestWrap_DifferentArgsMissIndependently(t *testing.T) {
	o := testOrchestrator()
	calls := 0

	double := func(_ context.Context, n int64) (int64, error) {
		calls++
		return n * 2, nil
	}

	memoized := Wrap(o, time.Minute, func(n int64) string {
		return fmt.Sprintf("double:%d", n)
	}, double)

	_, err := memoized(context.Background(), 1)
	require.NoError(t, err)
	_, err = memoized(context.Background(), 2)
	require.NoError(t, err)

	require.Equal(t, 2, calls)
}

func TestWrap_ErrorNotCached(t *testing.T) {
	o := testOrchestrator()
	calls := 0

	failing := func(_ context.Context, _ int64) (int64, error) {
		calls++
		return 0, fmt.Errorf("boom")
	}

	memoized := Wrap(o, time.Minute, func(n int64) string {
		return fmt.Sprintf("failing:%d", n)
	}, failing)

	_, err := memoized(context.Background(), 1)
	require.Error(t, err)
	_, err = memoized(context.Background(), 1)
	require.Error(t, err)

	require.Equal(t, 2, calls, "a failed call must not be cached")
}
