package config

import "time"

// LayeredCfg switches the orchestrator from the default
// [memory?, shared?, disk?] assembly to an explicit ordered tier list.
type LayeredCfg struct {
	// Use, when false, keeps the default tier assembly even though this
	// section is present (lets a config carry named layers without
	// activating layered mode).
	Use bool `yaml:"use_layered_cache"`

	Entries []LayerCfg `yaml:"layers"`
}

func (cfg *LayeredCfg) Enabled() bool { return cfg != nil && cfg.Use }

// LayerCfg names one entry in an explicit tier ordering.
type LayerCfg struct {
	Type    string        `yaml:"type"` // "memory" | "shared" | "disk"
	TTL     time.Duration `yaml:"ttl"`
	Enabled bool          `yaml:"enabled"`
	Weight  int           `yaml:"weight"`
	MaxSize int           `yaml:"max_size"`
}
