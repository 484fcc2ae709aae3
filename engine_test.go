package tiercache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tiercache/tiercache/config"
)

func memoryOnlyConfig() *config.Config {
	cfg := &config.Config{
		CacheMaxSize:   64,
		CacheTTL:       time.Hour,
		EvictionPolicy: config.EvictionLRU,
		Namespace:      "default",
		Memory:         &config.MemoryCfg{},
		WriteThrough:   true,
		ReadThrough:    true,
	}
	cfg.AdjustConfig()
	return cfg
}

func TestEngine_SetGetDelete(t *testing.T) {
	e, err := New(context.Background(), memoryOnlyConfig())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set(context.Background(), "k", "v", 0))

	v, ok, err := e.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	existed, err := e.Delete(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, existed)

	_, ok, err = e.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEngine_BulkOps(t *testing.T) {
	e, err := New(context.Background(), memoryOnlyConfig())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.SetMany(context.Background(), map[string]any{"a": 1, "b": 2}, 0))

	got, err := e.GetMany(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got["a"])
	require.Equal(t, int64(2), got["b"])
}

func TestEngine_ClearAndStats(t *testing.T) {
	e, err := New(context.Background(), memoryOnlyConfig())
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set(context.Background(), "k", "v", 0))
	require.NoError(t, e.Clear(context.Background()))

	_, ok, err := e.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)

	snap := e.Stats()
	require.Contains(t, snap, "memory")
}

func TestEngine_NoTierEnabled_Errors(t *testing.T) {
	cfg := &config.Config{CacheMaxSize: 1, EvictionPolicy: config.EvictionLRU, Namespace: "default"}
	cfg.AdjustConfig()
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
