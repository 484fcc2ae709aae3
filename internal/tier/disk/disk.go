// Package disk implements the on-disk persistent tier described in
// spec.md §4.4: a goleveldb-backed keyed store, an expiry sidecar per
// entry, a background retention sweep with normal/aggressive modes, and
// atomic build-beside-then-swap compaction. The framing technique (write
// to a temp path, then atomically replace) is carried forward from the
// teacher's internal/cache/db/dump/dump.go, which used it for shard dumps;
// that file itself was dead code (broken imports) so only the technique,
// not the code, survives here.
package disk

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/cacheerr"
	"github.com/tiercache/tiercache/internal/shared/cachedtime"
	"github.com/tiercache/tiercache/internal/shared/random"
	"github.com/tiercache/tiercache/internal/shared/rate"
	"github.com/tiercache/tiercache/internal/tier"
)

// aggressiveSweepRate caps how many deletes per second SweepAggressive
// issues, so a critical-threshold sweep doesn't starve concurrent reads
// of the same store with a tight delete loop.
const aggressiveSweepRate = 200

const expirySuffix = "__expires"

// Disk is the persistent tier for one namespace. mu guards the db handle
// itself — Compact swaps it for a fresh handle mid-flight — not the
// operations against it, which goleveldb already makes safe to share.
type Disk struct {
	dir       string
	basename  string
	namespace string
	cfg       *config.DiskCfg

	mu     sync.RWMutex
	db     *leveldb.DB
	pacer  *rate.Jitter
	cancel context.CancelFunc
}

// handle returns the current db handle under a read lock, so a concurrent
// Compact swap can't be observed half-done (old handle closed, new one not
// yet assigned) by a caller that read d.db directly.
func (d *Disk) handle() *leveldb.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// fileName returns "<basename>_<namespace>.db", or "<basename>.db" for the
// default namespace, per spec.md §4.4.
func fileName(basename, ns string) string {
	if ns == "" || ns == "default" {
		return basename + ".db"
	}
	return basename + "_" + ns + ".db"
}

func Open(dir, basename, ns string, cfg *config.DiskCfg) (*Disk, error) {
	path := filepath.Join(dir, fileName(basename, ns))
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, cacheerr.NewTierError("disk", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Disk{
		dir: dir, basename: basename, namespace: ns, cfg: cfg, db: db,
		pacer: rate.NewJitter(ctx, aggressiveSweepRate), cancel: cancel,
	}, nil
}

func (d *Disk) Name() string { return "disk" }

func expiryKey(key string) string { return key + expirySuffix }

func encodeExpiry(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}
	return []byte(strconv.FormatInt(t.UnixNano(), 10))
}

func decodeExpiry(b []byte) (time.Time, bool) {
	if len(b) == 0 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}

// Get consults the sidecar expiry entry; a missing or exceeded expiry is
// treated as a miss plus an eager delete, per spec.md §4.4.
func (d *Disk) Get(ctx context.Context, key string) (tier.Record, bool, error) {
	db := d.handle()
	val, err := db.Get([]byte(key), nil)
	if err != nil {
		if err == errors.ErrNotFound {
			return tier.Record{}, false, nil
		}
		return tier.Record{}, false, cacheerr.NewTierError("disk", err)
	}

	rec := tier.Record{Value: val}
	if expB, err := db.Get([]byte(expiryKey(key)), nil); err == nil {
		if exp, ok := decodeExpiry(expB); ok {
			rec.ExpiresAt = exp
		}
	}

	if rec.Expired(cachedtime.Now()) {
		_, _ = d.Delete(ctx, key)
		return tier.Record{}, false, nil
	}
	return rec, true, nil
}

func (d *Disk) Set(_ context.Context, key string, rec tier.Record) error {
	batch := new(leveldb.Batch)
	batch.Put([]byte(key), rec.Value)
	if exp := encodeExpiry(rec.ExpiresAt); exp != nil {
		batch.Put([]byte(expiryKey(key)), exp)
	} else {
		batch.Delete([]byte(expiryKey(key)))
	}
	if err := d.handle().Write(batch, nil); err != nil {
		return cacheerr.NewTierError("disk", err)
	}
	return nil
}

func (d *Disk) Delete(_ context.Context, key string) (bool, error) {
	db := d.handle()
	_, err := db.Get([]byte(key), nil)
	existed := err == nil
	batch := new(leveldb.Batch)
	batch.Delete([]byte(key))
	batch.Delete([]byte(expiryKey(key)))
	if err := db.Write(batch, nil); err != nil {
		return false, cacheerr.NewTierError("disk", err)
	}
	return existed, nil
}

func (d *Disk) GetMany(ctx context.Context, keys []string) (map[string]tier.Record, error) {
	out := make(map[string]tier.Record, len(keys))
	for _, k := range keys {
		rec, ok, err := d.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = rec
		}
	}
	return out, nil
}

func (d *Disk) SetMany(_ context.Context, entries map[string]tier.Record) error {
	batch := new(leveldb.Batch)
	for key, rec := range entries {
		batch.Put([]byte(key), rec.Value)
		if exp := encodeExpiry(rec.ExpiresAt); exp != nil {
			batch.Put([]byte(expiryKey(key)), exp)
		} else {
			batch.Delete([]byte(expiryKey(key)))
		}
	}
	if err := d.handle().Write(batch, nil); err != nil {
		return cacheerr.NewTierError("disk", err)
	}
	return nil
}

// Clear removes every entry in this store. Namespace isolation (spec.md
// §4.4) is already structural here: each namespace gets its own on-disk
// file, so clearing this tier instance only ever affects its namespace.
// The ns parameter exists for interface symmetry with other tiers.
func (d *Disk) Clear(_ context.Context, _ string) error {
	db := d.handle()
	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return cacheerr.NewTierError("disk", err)
	}
	if err := db.Write(batch, nil); err != nil {
		return cacheerr.NewTierError("disk", err)
	}
	return nil
}

func (d *Disk) Close() error {
	d.cancel()
	return d.handle().Close()
}

// entryKeys enumerates non-sidecar keys along with their sidecar expiry,
// sorted ascending by expiry (zero/no-expiry entries sort first), for the
// retention sweep.
func (d *Disk) entryKeys() ([]string, map[string]time.Time, error) {
	db := d.handle()
	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	var keys []string
	expiries := make(map[string]time.Time)
	for iter.Next() {
		k := string(iter.Key())
		if strings.HasSuffix(k, expirySuffix) {
			continue
		}
		keys = append(keys, k)
	}
	if err := iter.Error(); err != nil {
		return nil, nil, err
	}
	for _, k := range keys {
		if expB, err := db.Get([]byte(expiryKey(k)), nil); err == nil {
			if exp, ok := decodeExpiry(expB); ok {
				expiries[k] = exp
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return expiries[keys[i]].Before(expiries[keys[j]])
	})
	return keys, expiries, nil
}

// SweepNormal removes entries whose expiry is older than retention_days,
// per spec.md §4.4's normal retention mode. When cfg.StochasticRefresh is
// on, entries that have already expired but not yet crossed the hard
// cutoff are also removed with a rising probability as they approach it,
// so a large same-age cohort doesn't all get swept in the same pass.
func (d *Disk) SweepNormal(ctx context.Context) (int, error) {
	keys, expiries, err := d.entryKeys()
	if err != nil {
		return 0, cacheerr.NewTierError("disk", err)
	}

	retention := time.Duration(d.cfg.RetentionDays) * 24 * time.Hour
	now := cachedtime.Now()
	cutoff := now.Add(-retention)
	removed := 0
	for _, k := range keys {
		exp, hasExpiry := expiries[k]
		if !hasExpiry {
			continue
		}
		if exp.Before(cutoff) || d.isProbablyStale(exp, now, retention) {
			if _, err := d.Delete(ctx, k); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// isProbablyStale decides, for an entry that has expired but not yet
// crossed the hard retention cutoff, whether to remove it early. Ported
// from the teacher's internal/cache/db/model/expires.go isProbablyExpired:
// a hard floor (elapsed must cover at least Coefficient of the retention
// window) gates an exponentially rising removal probability.
func (d *Disk) isProbablyStale(exp, now time.Time, retention time.Duration) bool {
	if !d.cfg.StochasticRefresh || retention <= 0 || !exp.Before(now) {
		return false
	}
	elapsed := now.Sub(exp)
	if elapsed < time.Duration(float64(retention)*d.cfg.Coefficient) {
		return false
	}
	probability := 1 - math.Exp(-d.cfg.Beta*(float64(elapsed)/float64(retention)))
	return random.Float64() < probability
}

// SweepAggressive removes at least ceil(size*fraction) or 10 entries,
// whichever is larger, oldest first, per spec.md §4.4's aggressive mode
// triggered by disk_critical_threshold.
func (d *Disk) SweepAggressive(ctx context.Context) (int, error) {
	keys, _, err := d.entryKeys()
	if err != nil {
		return 0, cacheerr.NewTierError("disk", err)
	}

	fraction := d.cfg.AggressiveFraction
	if fraction <= 0 {
		fraction = 0.5
	}
	target := int(math.Ceil(float64(len(keys)) * fraction))
	if target < 10 {
		target = 10
	}
	if target > len(keys) {
		target = len(keys)
	}

	for i := 0; i < target; i++ {
		d.pacer.Take()
		if _, err := d.Delete(ctx, keys[i]); err != nil {
			return i, err
		}
	}
	return target, nil
}

// Compact rewrites the store into a fresh file and swaps it in atomically:
// on any failure the original store is left untouched. This is the
// generalized analogue of the teacher dump routine's tmp-file-then-rename
// technique, applied to a whole LevelDB directory instead of one flat file.
func (d *Disk) Compact(ctx context.Context) error {
	path := filepath.Join(d.dir, fileName(d.basename, d.namespace))
	tmpPath := path + ".compact"

	_ = os.RemoveAll(tmpPath)
	tmpDB, err := leveldb.OpenFile(tmpPath, nil)
	if err != nil {
		return cacheerr.NewTierError("disk", fmt.Errorf("open compact target: %w", err))
	}

	src := d.handle()
	iter := src.NewIterator(nil, nil)
	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Put(append([]byte(nil), iter.Key()...), append([]byte(nil), iter.Value()...))
	}
	iterErr := iter.Error()
	iter.Release()
	if iterErr != nil {
		tmpDB.Close()
		os.RemoveAll(tmpPath)
		return cacheerr.NewTierError("disk", iterErr)
	}
	if err := tmpDB.Write(batch, nil); err != nil {
		tmpDB.Close()
		os.RemoveAll(tmpPath)
		return cacheerr.NewTierError("disk", err)
	}
	if err := tmpDB.Close(); err != nil {
		os.RemoveAll(tmpPath)
		return cacheerr.NewTierError("disk", err)
	}

	// Everything from here on swaps the live handle: hold the write lock so
	// no Get/Set/Delete/SetMany/Clear/Close call can observe d.db between
	// the old handle closing and the new one taking its place.
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.db.Close(); err != nil {
		os.RemoveAll(tmpPath)
		return cacheerr.NewTierError("disk", fmt.Errorf("close original before swap: %w", err))
	}
	backupPath := path + ".old"
	_ = os.RemoveAll(backupPath)
	if err := os.Rename(path, backupPath); err != nil {
		os.RemoveAll(tmpPath)
		d.reopenBestEffort(path)
		return cacheerr.NewTierError("disk", fmt.Errorf("move original aside: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Rename(backupPath, path)
		d.reopenBestEffort(path)
		return cacheerr.NewTierError("disk", fmt.Errorf("swap compacted file in: %w", err))
	}

	newDB, err := leveldb.OpenFile(path, nil)
	if err != nil {
		_ = os.RemoveAll(path)
		_ = os.Rename(backupPath, path)
		d.reopenBestEffort(path)
		return cacheerr.NewTierError("disk", fmt.Errorf("reopen after compaction: %w", err))
	}
	d.db = newDB
	_ = os.RemoveAll(backupPath)
	return nil
}

// reopenBestEffort tries to restore d.db to a usable handle after the
// original was already closed but the swap failed partway through, so a
// failed Compact doesn't leave every later call operating on a closed
// handle. Caller already holds d.mu; d.db is left nil if this also fails.
func (d *Disk) reopenBestEffort(path string) {
	if db, err := leveldb.OpenFile(path, nil); err == nil {
		d.db = db
	} else {
		d.db = nil
	}
}

// UsagePercent reports the store directory's size as a percentage of
// cfg.CapacityBytes, for callers deciding whether to escalate the
// retention sweep past disk_usage_threshold/disk_critical_threshold. It
// returns 0 when CapacityBytes is unset.
func (d *Disk) UsagePercent() (float64, error) {
	frac, err := diskUsageFraction(d.dir, d.cfg.CapacityBytes)
	if err != nil {
		return 0, err
	}
	return frac * 100, nil
}

// UsageBytes reports the store directory's total on-disk size, for
// human-readable usage logging.
func (d *Disk) UsageBytes() (uint64, error) {
	var total int64
	err := filepath.Walk(d.dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return uint64(total), err
}

// diskUsageFraction reports the fraction of the store's directory size
// against a caller-supplied device capacity; UsagePercent reports it to the
// Engine's sweep scheduler.
func diskUsageFraction(dir string, capacityBytes int64) (float64, error) {
	if capacityBytes <= 0 {
		return 0, nil
	}
	var total int64
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return float64(total) / float64(capacityBytes), nil
}
