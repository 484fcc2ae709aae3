package config

import "time"

// MemoryCfg configures the in-process memory tier. A nil *MemoryCfg
// disables the tier entirely.
type MemoryCfg struct {
	// TTL is the default TTL for entries written to this tier. Zero
	// inherits Config.CacheTTL during AdjustConfig.
	TTL time.Duration `yaml:"memory_cache_ttl"`
}

func (cfg *MemoryCfg) Enabled() bool { return cfg != nil }
