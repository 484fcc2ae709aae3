package disk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/tier"
)

func newDisk(t *testing.T) *Disk {
	t.Helper()
	dir := t.TempDir()
	d, err := Open(dir, "cache", "default", &config.DiskCfg{RetentionDays: 7, AggressiveFraction: 0.5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestFileName(t *testing.T) {
	require.Equal(t, "cache.db", fileName("cache", "default"))
	require.Equal(t, "cache.db", fileName("cache", ""))
	require.Equal(t, "cache_tenant-a.db", fileName("cache", "tenant-a"))
}

func TestDisk_SetGetRoundTrip(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	err := d.Set(ctx, "foo", tier.Record{Value: []byte("bar")})
	require.NoError(t, err)

	rec, ok, err := d.Get(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("bar"), rec.Value)
}

func TestDisk_ExpiredEntryIsMissAndDeleted(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	err := d.Set(ctx, "foo", tier.Record{Value: []byte("bar"), ExpiresAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	_, ok, err := d.Get(ctx, "foo")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = d.db.Get([]byte("foo"), nil)
	require.Error(t, err, "expired entry should have been deleted from the store")
}

func TestDisk_DeleteIsIdempotent(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	require.NoError(t, d.Set(ctx, "foo", tier.Record{Value: []byte("bar")}))

	existed, err := d.Delete(ctx, "foo")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = d.Delete(ctx, "foo")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestDisk_ClearRemovesEverything(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	require.NoError(t, d.Set(ctx, "a", tier.Record{Value: []byte("1")}))
	require.NoError(t, d.Set(ctx, "b", tier.Record{Value: []byte("2")}))

	require.NoError(t, d.Clear(ctx, "default"))

	_, ok, _ := d.Get(ctx, "a")
	require.False(t, ok)
}

func TestDisk_SweepNormal_RemovesOnlyExpired(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	d.cfg.RetentionDays = 1

	require.NoError(t, d.Set(ctx, "old", tier.Record{Value: []byte("1"), ExpiresAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, d.Set(ctx, "fresh", tier.Record{Value: []byte("2"), ExpiresAt: time.Now().Add(time.Hour)}))

	removed, err := d.SweepNormal(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, ok, _ := d.Get(ctx, "fresh")
	require.True(t, ok)
}

func TestDisk_SweepAggressive_RemovesAtLeastTenOrFraction(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		require.NoError(t, d.Set(ctx, key, tier.Record{Value: []byte("v")}))
	}

	removed, err := d.SweepAggressive(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, removed, 10)
}

func TestDisk_Compact_PreservesData(t *testing.T) {
	d := newDisk(t)
	ctx := context.Background()
	require.NoError(t, d.Set(ctx, "foo", tier.Record{Value: []byte("bar")}))

	require.NoError(t, d.Compact(ctx))

	rec, ok, err := d.Get(ctx, "foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("bar"), rec.Value)
}
