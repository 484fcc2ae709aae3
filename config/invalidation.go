package config

// InvalidationCfg configures the cross-instance invalidation bus riding on
// the shared tier's pub/sub. A nil *InvalidationCfg disables it.
type InvalidationCfg struct {
	Channel string `yaml:"invalidation_channel"`
}

func (cfg *InvalidationCfg) Enabled() bool { return cfg != nil }
