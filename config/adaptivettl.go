package config

// AdaptiveTTLCfg configures per-key access-driven TTL adjustment. A nil
// *AdaptiveTTLCfg disables the feature; every write then uses the
// override-or-default TTL unmodified.
type AdaptiveTTLCfg struct {
	Min                 int64   `yaml:"adaptive_ttl_min"` // nanoseconds
	Max                 int64   `yaml:"adaptive_ttl_max"` // nanoseconds
	AccessCountThreshold int64  `yaml:"access_count_threshold"`
	AdjustmentFactor     float64 `yaml:"adaptive_ttl_adjustment_factor"`
}

func (cfg *AdaptiveTTLCfg) Enabled() bool { return cfg != nil }

func (cfg *AdaptiveTTLCfg) adjust() {
	if cfg.AccessCountThreshold <= 0 {
		cfg.AccessCountThreshold = 10
	}
	if cfg.AdjustmentFactor <= 1 {
		cfg.AdjustmentFactor = 1.5
	}
	if cfg.Max <= 0 {
		cfg.Max = int64(24 * 3600 * 1e9)
	}
}
