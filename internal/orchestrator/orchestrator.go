// Package orchestrator implements the public engine's operation semantics
// described in spec.md §4.6: read-through with promotion, write-through
// (or fastest-tier-only) writes, delete/clear/bulk operations, and
// statistics recording. It composes an ordered list of tier.Tier instances
// without knowing which concrete backend each one is.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/adaptivettl"
	"github.com/tiercache/tiercache/internal/cacheerr"
	"github.com/tiercache/tiercache/internal/codec"
	"github.com/tiercache/tiercache/internal/failguard"
	"github.com/tiercache/tiercache/internal/namespace"
	"github.com/tiercache/tiercache/internal/shared/cachedtime"
	"github.com/tiercache/tiercache/internal/stats"
	"github.com/tiercache/tiercache/internal/tier"
)

// namedTier pairs a tier with the failure guard wrapping its externally
// observable calls. Guard is nil for tiers spec.md doesn't consider
// externally observable (the in-process memory tier).
type namedTier struct {
	tier.Tier
	guard *failguard.Guard
}

// Orchestrator is the engine's tier-composition core.
type Orchestrator struct {
	cfg       *config.Config
	tiers     []namedTier
	codec     *codec.Pipeline
	adaptive  *adaptivettl.Tracker
	collector *stats.Collector
	logger    *slog.Logger
	ns        string
}

// Option configures an Orchestrator at construction.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New composes tiers (fastest first) into an Orchestrator per cfg.
func New(cfg *config.Config, tiers []tier.Tier, collector *stats.Collector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		codec:     codec.NewPipeline(cfg),
		collector: collector,
		ns:        cfg.Namespace,
		logger:    slog.Default(),
	}
	if cfg.AdaptiveTTL.Enabled() {
		o.adaptive = adaptivettl.New(cfg.AdaptiveTTL, cfg.CacheMaxSize)
	}
	for _, t := range tiers {
		nt := namedTier{Tier: t}
		if cfg.FailGuard.Enabled() && isExternallyObservable(t.Name()) {
			nt.guard = failguard.NewGuard(t.Name(), cfg.FailGuard.FailureThreshold, cfg.FailGuard.ResetTimeout,
				cfg.FailGuard.RetryAttempts, cfg.FailGuard.RetryDelay)
		}
		o.tiers = append(o.tiers, nt)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func isExternallyObservable(name string) bool { return name == "disk" || name == "shared" }

func (o *Orchestrator) tierKey(key string) string {
	return namespace.ToTier(o.ns, key)
}

// callTier runs fn against a tier, routing through its guard when present.
func (o *Orchestrator) callTier(ctx context.Context, nt namedTier, fn func(ctx context.Context) error) error {
	if nt.guard == nil {
		return fn(ctx)
	}
	return nt.guard.Do(ctx, fn)
}

// Get implements the read path: probes tiers fastest-first, decodes on
// hit, promotes the decoded value to every faster tier, and records
// adaptive-TTL access statistics.
func (o *Orchestrator) Get(ctx context.Context, key string) (any, bool, error) {
	if err := cacheerr.ValidateKey(key); err != nil {
		return nil, false, err
	}
	start := cachedtime.Now()
	tk := o.tierKey(key)

	for i, nt := range o.tiers {
		var rec tier.Record
		var found bool
		err := o.callTier(ctx, nt, func(ctx context.Context) error {
			r, ok, err := nt.Get(ctx, tk)
			rec, found = r, ok
			return err
		})
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			continue // TierUnavailable: counted as miss, continue per spec.md §7
		}
		if !found {
			o.collector.RecordMiss(nt.Name())
			continue
		}

		value, err := o.codec.Decode(rec.Value)
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			continue // decode failure: treat as miss, continue per spec.md §4.6
		}

		o.collector.RecordHit(nt.Name())
		o.collector.RecordLatency(cachedtime.Since(start).Seconds())

		if o.adaptive != nil {
			o.adaptive.RecordAccess(key)
		}
		o.promote(ctx, tk, rec, o.tiers[:i])
		return value, true, nil
	}

	o.collector.RecordLatency(cachedtime.Since(start).Seconds())
	return nil, false, nil
}

// promote fire-and-forgets a write of rec back to every tier faster than
// the one that served the hit, per spec.md §4.6 invariant 7. It runs
// detached from the triggering request's context, which is typically
// canceled the moment the request returns — long before this goroutine
// would otherwise get a chance to run.
func (o *Orchestrator) promote(_ context.Context, tk string, rec tier.Record, faster []namedTier) {
	if len(faster) == 0 {
		return
	}
	ctx := context.Background()
	go func() {
		for _, nt := range faster {
			if err := o.callTier(ctx, nt, func(ctx context.Context) error {
				return nt.Set(ctx, tk, rec)
			}); err != nil {
				o.logger.Warn("promotion write failed", "tier", nt.Name(), "error", err)
			}
		}
	}()
}

// Set implements the write path: encode once, compute the effective TTL,
// then write-through to every enabled tier (success on the first) or only
// to the fastest tier when write_through is disabled.
func (o *Orchestrator) Set(ctx context.Context, key string, value any, ttlOverride time.Duration) error {
	if err := cacheerr.ValidateKey(key); err != nil {
		return err
	}
	start := cachedtime.Now()
	tk := o.tierKey(key)

	body, err := o.codec.Encode(value)
	if err != nil {
		return err
	}

	base := o.cfg.CacheTTL
	if ttlOverride > 0 {
		base = ttlOverride
	}
	effTTL := base
	if o.adaptive != nil {
		effTTL = o.adaptive.Touch(key, base)
	}

	rec := tier.Record{Value: body}
	if effTTL > 0 {
		rec.ExpiresAt = cachedtime.Now().Add(effTTL)
	}

	targets := o.tiers
	if !o.cfg.WriteThrough && len(targets) > 1 {
		targets = targets[:1]
	}

	var firstTierErr error
	for i, nt := range targets {
		err := o.callTier(ctx, nt, func(ctx context.Context) error {
			return nt.Set(ctx, tk, rec)
		})
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			if i == 0 {
				firstTierErr = err
			} else {
				o.logger.Warn("write-through set failed on slower tier", "tier", nt.Name(), "error", err)
			}
			continue
		}
		o.collector.RecordSet(nt.Name())
	}

	o.collector.RecordLatency(cachedtime.Since(start).Seconds())
	return firstTierErr
}

// Delete applies delete to every enabled tier; returns true if any tier
// reported an existing entry removed.
func (o *Orchestrator) Delete(ctx context.Context, key string) (bool, error) {
	if err := cacheerr.ValidateKey(key); err != nil {
		return false, err
	}
	tk := o.tierKey(key)
	anyExisted := false
	var firstErr error

	for _, nt := range o.tiers {
		var existed bool
		err := o.callTier(ctx, nt, func(ctx context.Context) error {
			e, err := nt.Delete(ctx, tk)
			existed = e
			return err
		})
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if existed {
			anyExisted = true
			o.collector.RecordDelete(nt.Name())
		}
	}
	return anyExisted, firstErr
}

// Clear applies clear to every enabled tier in parallel, returning after
// all complete.
func (o *Orchestrator) Clear(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, len(o.tiers))
	for i, nt := range o.tiers {
		wg.Add(1)
		go func(i int, nt namedTier) {
			defer wg.Done()
			errs[i] = o.callTier(ctx, nt, func(ctx context.Context) error {
				return nt.Clear(ctx, o.ns)
			})
		}(i, nt)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// GetMany issues get_many per tier, cascading misses to the next tier and
// promoting slower-tier hits back up to every faster tier in one set_many,
// per spec.md §4.6.
func (o *Orchestrator) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	for _, k := range keys {
		if err := cacheerr.ValidateKey(k); err != nil {
			return nil, err
		}
	}

	remaining := make([]string, len(keys))
	tierKeys := make(map[string]string, len(keys))
	for i, k := range keys {
		remaining[i] = k
		tierKeys[k] = o.tierKey(k)
	}

	out := make(map[string]any, len(keys))
	type hitAt struct {
		key string
		rec tier.Record
	}

	for i, nt := range o.tiers {
		if len(remaining) == 0 {
			break
		}
		tks := make([]string, len(remaining))
		for j, k := range remaining {
			tks[j] = tierKeys[k]
		}

		var results map[string]tier.Record
		err := o.callTier(ctx, nt, func(ctx context.Context) error {
			r, err := nt.GetMany(ctx, tks)
			results = r
			return err
		})
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			continue
		}

		var stillMissing []string
		var hits []hitAt
		for _, k := range remaining {
			rec, ok := results[tierKeys[k]]
			if !ok {
				stillMissing = append(stillMissing, k)
				continue
			}
			value, decErr := o.codec.Decode(rec.Value)
			if decErr != nil {
				o.collector.RecordError(nt.Name(), decErr)
				stillMissing = append(stillMissing, k)
				continue
			}
			out[k] = value
			hits = append(hits, hitAt{key: k, rec: rec})
			o.collector.RecordHit(nt.Name())
			if o.adaptive != nil {
				o.adaptive.RecordAccess(k)
			}
		}
		remaining = stillMissing

		if len(hits) > 0 && i > 0 {
			promoteSet := make(map[string]tier.Record, len(hits))
			for _, h := range hits {
				promoteSet[tierKeys[h.key]] = h.rec
			}
			faster := o.tiers[:i]
			bgCtx := context.Background()
			go func() {
				for _, ft := range faster {
					if err := o.callTier(bgCtx, ft, func(ctx context.Context) error {
						return ft.SetMany(ctx, promoteSet)
					}); err != nil {
						o.logger.Warn("bulk promotion failed", "tier", ft.Name(), "error", err)
					}
				}
			}()
		}
	}

	for range remaining {
		o.collector.RecordMiss("engine")
	}
	return out, nil
}

// SetMany encodes each value once, applying ttlOverride (falling back to
// cfg.CacheTTL when zero, mirroring Set) and delegates to every enabled
// tier's set_many.
func (o *Orchestrator) SetMany(ctx context.Context, entries map[string]any, ttlOverride time.Duration) error {
	for k := range entries {
		if err := cacheerr.ValidateKey(k); err != nil {
			return err
		}
	}

	base := o.cfg.CacheTTL
	if ttlOverride > 0 {
		base = ttlOverride
	}

	tierEntries := make(map[string]tier.Record, len(entries))
	for k, v := range entries {
		body, err := o.codec.Encode(v)
		if err != nil {
			return err
		}
		effTTL := base
		if o.adaptive != nil {
			effTTL = o.adaptive.Touch(k, base)
		}
		rec := tier.Record{Value: body}
		if effTTL > 0 {
			rec.ExpiresAt = cachedtime.Now().Add(effTTL)
		}
		tierEntries[o.tierKey(k)] = rec
	}

	targets := o.tiers
	if !o.cfg.WriteThrough && len(targets) > 1 {
		targets = targets[:1]
	}

	var firstErr error
	for _, nt := range targets {
		err := o.callTier(ctx, nt, func(ctx context.Context) error {
			return nt.SetMany(ctx, tierEntries)
		})
		if err != nil {
			o.collector.RecordError(nt.Name(), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		o.collector.RecordSet(nt.Name())
	}
	return firstErr
}

// Close releases every tier's resources, continuing past individual
// failures so every tier gets a chance to close.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, nt := range o.tiers {
		if err := nt.Close(); err != nil && firstErr == nil {
			firstErr = cacheerr.NewTierError(nt.Name(), err)
		}
	}
	return firstErr
}

// Stats returns a per-tier statistics snapshot for get_stats().
func (o *Orchestrator) Stats() map[string]stats.Snapshot {
	return o.collector.Snapshot()
}
