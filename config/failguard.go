package config

import "time"

// FailGuardCfg configures the retry-with-backoff and circuit breaker
// wrapping calls to externally observable tiers (persistent, shared). A nil
// *FailGuardCfg means such tiers are called directly, with no retry or
// breaker protection.
type FailGuardCfg struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`

	// FailureThreshold is the number of consecutive failures before the
	// breaker opens.
	FailureThreshold int `yaml:"failure_threshold"`

	// ResetTimeout is how long the breaker stays open before allowing a
	// single half-open probe through.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

func (cfg *FailGuardCfg) Enabled() bool { return cfg != nil }
