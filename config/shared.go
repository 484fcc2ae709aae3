package config

import "time"

// SharedTierCfg configures the abstract networked shared tier. The engine
// only depends on the tier.Tier contract; this section carries the
// connection-timeout bound referenced by the concurrency model (§5) so a
// caller-supplied shared-tier implementation has somewhere to read it from.
type SharedTierCfg struct {
	ConnectionTimeout time.Duration `yaml:"redis_connection_timeout"`
}

func (cfg *SharedTierCfg) Enabled() bool { return cfg != nil }
