package config

// WarmupCfg configures startup cache warming. A nil *WarmupCfg disables
// warmup entirely.
type WarmupCfg struct {
	KeysFile string `yaml:"warmup_keys_file"`
}

func (cfg *WarmupCfg) Enabled() bool { return cfg != nil }
