// Package tiercache implements the multi-tier cache engine described by
// the specification: an ordered composition of memory, shared, and
// persistent tiers behind one read-through/write-through facade, with
// adaptive TTL, the value pipeline, a failure guard, warmup, and
// cross-node invalidation layered on top. It is the public surface; all
// policy lives in internal/.
package tiercache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/cache/db/bloom"
	"github.com/tiercache/tiercache/internal/invalidation"
	"github.com/tiercache/tiercache/internal/orchestrator"
	"github.com/tiercache/tiercache/internal/shared/bytes"
	"github.com/tiercache/tiercache/internal/stats"
	"github.com/tiercache/tiercache/internal/tier"
	"github.com/tiercache/tiercache/internal/tier/disk"
	"github.com/tiercache/tiercache/internal/tier/memory"
	"github.com/tiercache/tiercache/internal/warmup"
)

// Engine is the cache's public facade, exposing get/set/delete/clear,
// bulk variants, a statistics accessor, and close, per spec.md §4.6.
type Engine struct {
	orc    *orchestrator.Orchestrator
	disk   *disk.Disk
	bus    *invalidation.Bus
	logger *slog.Logger
	cancel context.CancelFunc
}

// Option configures New beyond what Config carries: a caller-supplied
// shared tier (the engine has no built-in opinion about which networked
// backend implements it), a logger, and the node ID used on the
// invalidation bus.
type Option func(*options)

type options struct {
	shared tier.Tier
	logger *slog.Logger
	nodeID string
}

// WithSharedTier wires a caller-supplied tier.Tier as the shared tier.
// Required for cfg.Shared.Enabled() to have any effect — the engine
// itself assumes no specific shared-tier backend.
func WithSharedTier(t tier.Tier) Option {
	return func(o *options) { o.shared = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNodeID sets this engine's identity on the invalidation bus. Defaults
// to "local" when unset.
func WithNodeID(id string) Option {
	return func(o *options) { o.nodeID = id }
}

// New builds the tier composition, statistics, warmup, and invalidation
// wiring cfg describes, and starts their background workers under ctx.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	o := &options{logger: slog.Default(), nodeID: "local"}
	for _, opt := range opts {
		opt(o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tiercache: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	tiers, diskTier, err := buildTiers(cfg, o)
	if err != nil {
		cancel()
		return nil, err
	}
	if len(tiers) == 0 {
		cancel()
		return nil, fmt.Errorf("tiercache: no tier is enabled")
	}

	collector := stats.New()
	orc := orchestrator.New(cfg, tiers, collector, orchestrator.WithLogger(o.logger))

	e := &Engine{orc: orc, disk: diskTier, logger: o.logger, cancel: cancel}

	if diskTier != nil && cfg.Disk.SweepInterval > 0 {
		go e.runRetentionSweep(ctx, cfg)
	}
	if diskTier != nil && cfg.Disk.CompactionInterval > 0 {
		go e.runCompaction(ctx, cfg)
	}

	statsLogger := stats.NewLogger(collector, o.logger, 30*time.Second)
	statsLogger.Run(ctx)
	go func() {
		<-ctx.Done()
		_ = statsLogger.Close()
	}()

	if cfg.Invalidation.Enabled() {
		e.bus = invalidation.NewBus(o.nodeID)
		e.bus.Subscribe(e.onInvalidation)
	}

	if cfg.Warmup.Enabled() {
		if err := warmup.Apply(cfg.Warmup.KeysFile, engineWarmupDestination{e}, o.logger); err != nil {
			o.logger.Warn("warmup failed", "error", err)
		}
	}

	return e, nil
}

func buildTiers(cfg *config.Config, o *options) ([]tier.Tier, *disk.Disk, error) {
	var tiers []tier.Tier
	var diskTier *disk.Disk

	if cfg.Layers.Enabled() {
		for _, layer := range cfg.Layers.Entries {
			if !layer.Enabled {
				continue
			}
			t, dt, err := buildNamedTier(layer.Type, cfg, o)
			if err != nil {
				return nil, nil, err
			}
			if t != nil {
				tiers = append(tiers, t)
			}
			if dt != nil {
				diskTier = dt
			}
		}
		return tiers, diskTier, nil
	}

	for _, name := range []string{"memory", "shared", "disk"} {
		t, dt, err := buildNamedTier(name, cfg, o)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			tiers = append(tiers, t)
		}
		if dt != nil {
			diskTier = dt
		}
	}
	return tiers, diskTier, nil
}

func buildNamedTier(name string, cfg *config.Config, o *options) (tier.Tier, *disk.Disk, error) {
	switch name {
	case "memory":
		if !cfg.Memory.Enabled() {
			return nil, nil, nil
		}
		return memory.New(cfg, bloom.NewAdmissionControl(cfg.Admission)), nil, nil
	case "shared":
		if !cfg.Shared.Enabled() || o.shared == nil {
			return nil, nil, nil
		}
		return o.shared, nil, nil
	case "disk":
		if !cfg.Disk.Enabled() {
			return nil, nil, nil
		}
		d, err := disk.Open(cfg.CacheDir, cfg.CacheFile, cfg.Namespace, cfg.Disk)
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	default:
		return nil, nil, fmt.Errorf("tiercache: unknown layer type %q", name)
	}
}

func (e *Engine) runRetentionSweep(ctx context.Context, cfg *config.Config) {
	ticker := time.NewTicker(cfg.Disk.SweepInterval)
	defer ticker.Stop()

	// watcher probes usage more often than the configured sweep_interval
	// so disk_usage_threshold can pull a sweep forward instead of waiting
	// for the next scheduled tick, per its doc comment.
	watchInterval := cfg.Disk.SweepInterval / 4
	if watchInterval < time.Second {
		watchInterval = time.Second
	}
	watcher := time.NewTicker(watchInterval)
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweepOnce(ctx, cfg)
		case <-watcher.C:
			e.maybeSweepProactively(ctx, cfg)
		}
	}
}

// maybeSweepProactively runs an out-of-schedule normal sweep once disk
// usage crosses disk_usage_threshold, independent of sweep_interval.
// disk_critical_threshold's aggressive-mode escalation stays on the
// regular schedule via sweepOnce.
func (e *Engine) maybeSweepProactively(ctx context.Context, cfg *config.Config) {
	usagePct, err := e.disk.UsagePercent()
	if err != nil || usagePct < cfg.Disk.UsageThreshold {
		return
	}
	e.logger.Info("disk usage above threshold, running out-of-schedule sweep",
		"usage_pct", usagePct, "threshold", cfg.Disk.UsageThreshold)
	if _, err := e.disk.SweepNormal(ctx); err != nil {
		e.logger.Warn("proactive disk sweep failed", "error", err)
	}
}

// sweepOnce runs the aggressive sweep when current disk usage is at or
// above disk_critical_threshold and the normal sweep otherwise, per
// spec.md §4.4, and logs the store's size the way the teacher's
// telemetry sampler reports memory usage.
func (e *Engine) sweepOnce(ctx context.Context, cfg *config.Config) {
	usagePct, err := e.disk.UsagePercent()
	if err != nil {
		e.logger.Warn("disk usage probe failed", "error", err)
	}

	if usedBytes, err := e.disk.UsageBytes(); err == nil {
		e.logger.Debug("disk tier usage", "size", bytes.FmtMem(usedBytes), "usage_pct", usagePct)
	}

	if usagePct >= cfg.Disk.CriticalThreshold {
		if removed, err := e.disk.SweepAggressive(ctx); err != nil {
			e.logger.Warn("disk aggressive sweep failed", "error", err)
		} else {
			e.logger.Info("disk aggressive sweep completed", "removed", removed)
		}
		return
	}

	if _, err := e.disk.SweepNormal(ctx); err != nil {
		e.logger.Warn("disk retention sweep failed", "error", err)
	}
}

func (e *Engine) runCompaction(ctx context.Context, cfg *config.Config) {
	ticker := time.NewTicker(cfg.Disk.CompactionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.disk.Compact(ctx); err != nil {
				e.logger.Warn("disk compaction failed", "error", err)
			}
		}
	}
}

// onInvalidation applies a foreign-origin event to the orchestrator's
// (local) tiers, per spec.md §4.10: a key event deletes that key and an
// all event clears every tier. Other event types are ignored.
func (e *Engine) onInvalidation(evt invalidation.Event) {
	ctx := context.Background()
	switch evt.Type {
	case invalidation.EventKey:
		_, _ = e.orc.Delete(ctx, evt.Key)
	case invalidation.EventAll:
		_ = e.orc.Clear(ctx)
	default:
		// pattern/namespace invalidation requires tier-level scan support
		// beyond the tier.Tier contract; unsupported for now.
	}
}

// Get reads key through the tier chain, promoting hits to faster tiers.
func (e *Engine) Get(ctx context.Context, key string) (any, bool, error) {
	return e.orc.Get(ctx, key)
}

// Set writes key through the tier chain. ttl of 0 uses the configured
// default or adaptive TTL.
func (e *Engine) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	err := e.orc.Set(ctx, key, value, ttl)
	if err == nil && e.bus != nil {
		e.bus.Publish(invalidation.Event{Type: invalidation.EventKey, Key: key})
	}
	return err
}

func (e *Engine) Delete(ctx context.Context, key string) (bool, error) {
	existed, err := e.orc.Delete(ctx, key)
	if err == nil && e.bus != nil {
		e.bus.Publish(invalidation.Event{Type: invalidation.EventKey, Key: key})
	}
	return existed, err
}

func (e *Engine) Clear(ctx context.Context) error {
	err := e.orc.Clear(ctx)
	if err == nil && e.bus != nil {
		e.bus.Publish(invalidation.Event{Type: invalidation.EventAll})
	}
	return err
}

func (e *Engine) GetMany(ctx context.Context, keys []string) (map[string]any, error) {
	return e.orc.GetMany(ctx, keys)
}

// SetMany writes entries through the tier chain. ttl of 0 uses the
// configured default or adaptive TTL, mirroring Set.
func (e *Engine) SetMany(ctx context.Context, entries map[string]any, ttl time.Duration) error {
	return e.orc.SetMany(ctx, entries, ttl)
}

func (e *Engine) Stats() map[string]stats.Snapshot {
	return e.orc.Stats()
}

func (e *Engine) Close() error {
	e.cancel()
	return e.orc.Close()
}

// engineWarmupDestination adapts Engine to warmup.Destination.
type engineWarmupDestination struct{ e *Engine }

func (d engineWarmupDestination) Has(key string) bool {
	_, ok, _ := d.e.Get(context.Background(), key)
	return ok
}

func (d engineWarmupDestination) SetMany(entries map[string]any) error {
	return d.e.SetMany(context.Background(), entries, 0)
}
