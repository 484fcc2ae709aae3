// Package config holds the engine's configuration surface: a tree of
// yaml-tagged, nilable sub-configs mirroring the teacher's convention of
// "nil sub-config means the subsystem is disabled". Loading is YAML-first
// (gopkg.in/yaml.v3); there is no environment-variable loading path by
// design (see Non-goals).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tiercache/tiercache/internal/cacheerr"
)

// Config groups every subsystem's configuration. Optional subsystems are
// pointers; a nil pointer disables the subsystem and callers must check
// Enabled() rather than dereferencing directly.
type Config struct {
	// CacheDir is the base directory for the persistent tier's files and
	// any warmup/dump artifacts resolved relative to it.
	CacheDir string `yaml:"cache_dir"`

	// CacheFile is the persistent tier's base filename, before the
	// "_<namespace>" suffix and ".db" extension are appended.
	CacheFile string `yaml:"cache_file"`

	// CacheMaxSize bounds the memory tier's entry count.
	CacheMaxSize int `yaml:"cache_max_size"`

	// CacheTTL is the default TTL applied when a set call carries no override.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// EvictionPolicy selects the memory tier's eviction discipline.
	EvictionPolicy EvictionPolicy `yaml:"eviction_policy"`

	// Namespace scopes every key this engine touches ("default" means no prefix).
	Namespace string `yaml:"namespace"`

	// MemoryShards is parsed and defaulted to 1 by AdjustConfig. The memory
	// tier does not read it: its store is always a single map, whatever
	// the value.
	MemoryShards int `yaml:"memory_shards"`

	Memory       *MemoryCfg       `yaml:"memory"`
	Disk         *DiskCfg         `yaml:"disk"`
	Layers       *LayeredCfg      `yaml:"cache_layers"`
	Compression  *CompressionCfg  `yaml:"compression"`
	Encryption   *EncryptionCfg   `yaml:"encryption"`
	Signing      *SigningCfg      `yaml:"signing"`
	AdaptiveTTL  *AdaptiveTTLCfg  `yaml:"adaptive_ttl"`
	FailGuard    *FailGuardCfg    `yaml:"fail_guard"`
	Warmup       *WarmupCfg       `yaml:"warmup"`
	Invalidation *InvalidationCfg `yaml:"invalidation"`
	Admission    *AdmissionCfg    `yaml:"memory_admission_control"`
	Shared       *SharedTierCfg   `yaml:"shared_tier"`

	// WriteThrough issues set to every enabled tier, not just the fastest.
	WriteThrough bool `yaml:"write_through"`

	// ReadThrough is parsed but not read by the engine: the read path always
	// falls through to slower tiers on a miss, whatever its value.
	ReadThrough bool `yaml:"read_through"`
}

// EvictionPolicy names the memory tier's eviction discipline.
type EvictionPolicy string

const (
	EvictionLRU  EvictionPolicy = "lru"
	EvictionFIFO EvictionPolicy = "fifo"
	EvictionLFU  EvictionPolicy = "lfu"
)

func (cfg *Config) AdjustConfig() {
	if cfg.MemoryShards <= 0 {
		cfg.MemoryShards = 1
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.EvictionPolicy == "" {
		cfg.EvictionPolicy = EvictionLRU
	}
	if cfg.Memory.Enabled() && cfg.Memory.TTL == 0 {
		cfg.Memory.TTL = cfg.CacheTTL
	}
	if cfg.Disk.Enabled() && cfg.Disk.TTL == 0 {
		cfg.Disk.TTL = cfg.CacheTTL
	}
	if cfg.Disk.Enabled() {
		cfg.Disk.adjust()
	}
	if cfg.AdaptiveTTL.Enabled() {
		cfg.AdaptiveTTL.adjust()
	}
}

// Validate reports a cacheerr.ErrConfig-wrapping error for inconsistent options.
func (cfg *Config) Validate() error {
	switch cfg.EvictionPolicy {
	case EvictionLRU, EvictionFIFO, EvictionLFU:
	default:
		return fmt.Errorf("config: unknown eviction_policy %q: %w", cfg.EvictionPolicy, cacheerr.ErrConfig)
	}
	if cfg.CacheMaxSize <= 0 && cfg.Memory.Enabled() {
		return fmt.Errorf("config: cache_max_size must be > 0 when the memory tier is enabled: %w", cacheerr.ErrConfig)
	}
	if cfg.Compression.Enabled() {
		if err := cfg.Compression.validate(); err != nil {
			return fmt.Errorf("%v: %w", err, cacheerr.ErrConfig)
		}
	}
	if cfg.Signing.Enabled() {
		if err := cfg.Signing.validate(); err != nil {
			return fmt.Errorf("%v: %w", err, cacheerr.ErrConfig)
		}
	}
	if cfg.Encryption.Enabled() {
		if err := cfg.Encryption.validate(); err != nil {
			return fmt.Errorf("%v: %w", err, cacheerr.ErrConfig)
		}
	}
	return nil
}

// LoadConfig reads and unmarshals a YAML config file, then runs AdjustConfig.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.AdjustConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a ready-to-use Config for programmatic construction and
// tests: memory tier only, LRU eviction, 10,000 entries, a one-hour TTL,
// "./cache" as the cache directory, and write-through and read-through on.
// These values are set here; AdjustConfig does not supply them to a loaded
// YAML document that omits them.
func Default() *Config {
	cfg := &Config{
		CacheDir:       "./cache",
		CacheFile:      "cache",
		CacheMaxSize:   10_000,
		CacheTTL:       time.Hour,
		EvictionPolicy: EvictionLRU,
		Namespace:      "default",
		MemoryShards:   1,
		Memory:         &MemoryCfg{},
		WriteThrough:   true,
		ReadThrough:    true,
	}
	cfg.AdjustConfig()
	return cfg
}
