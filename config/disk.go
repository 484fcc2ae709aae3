package config

import "time"

// DiskCfg configures the persistent (on-disk) tier. A nil *DiskCfg
// disables the tier entirely.
type DiskCfg struct {
	// TTL is the default TTL for entries written to this tier. Zero
	// inherits Config.CacheTTL during AdjustConfig.
	TTL time.Duration `yaml:"disk_cache_ttl"`

	// UsageThreshold (0-100) is the disk-usage percentage above which the
	// retention sweep is allowed to run proactively (not just on schedule).
	UsageThreshold float64 `yaml:"disk_usage_threshold"`

	// CriticalThreshold (0-100) is the disk-usage percentage above which
	// the retention sweep switches to aggressive mode.
	CriticalThreshold float64 `yaml:"disk_critical_threshold"`

	// RetentionDays bounds normal-mode retention: entries older than this
	// many days (measured from their absolute expiry) are swept.
	RetentionDays int `yaml:"disk_retention_days"`

	// AggressiveFraction is the fraction of the coldest entries removed in
	// aggressive mode, floored at 10 entries. Resolves the "aggressive
	// cleanup fraction" open question from the source with an explicit
	// default of 0.5.
	AggressiveFraction float64 `yaml:"disk_aggressive_fraction"`

	// SweepInterval paces the background retention sweep. Zero disables
	// the interval-driven sweep (on-demand only).
	SweepInterval time.Duration `yaml:"disk_sweep_interval"`

	// CompactionInterval paces the periodic compaction pass. Zero disables
	// interval-driven compaction (on-demand only).
	CompactionInterval time.Duration `yaml:"disk_compaction_interval"`

	// CapacityBytes is the device/volume capacity the tier's directory is
	// measured against when deciding whether UsageThreshold or
	// CriticalThreshold has been crossed. Zero disables usage-based
	// sweep escalation; the sweep then only ever runs in normal mode.
	CapacityBytes int64 `yaml:"disk_capacity_bytes"`

	// StochasticRefresh enables probabilistic early removal of entries
	// approaching (but not yet past) the normal-mode retention cutoff,
	// so a large cohort of same-age entries doesn't all get swept in the
	// same pass. Off by default.
	StochasticRefresh bool `yaml:"disk_stochastic_refresh"`

	// Beta controls how steeply the early-removal probability rises as an
	// entry approaches the cutoff (exponential CDF steepness).
	Beta float64 `yaml:"disk_stochastic_beta"`

	// Coefficient is the fraction of the retention window that must have
	// elapsed before stochastic early removal is even considered.
	Coefficient float64 `yaml:"disk_stochastic_coefficient"`
}

func (cfg *DiskCfg) Enabled() bool { return cfg != nil }

func (cfg *DiskCfg) adjust() {
	if cfg.AggressiveFraction <= 0 {
		cfg.AggressiveFraction = 0.5
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 90
	}
	if cfg.UsageThreshold <= 0 {
		cfg.UsageThreshold = 75
	}
	if cfg.StochasticRefresh && cfg.Beta <= 0 {
		cfg.Beta = 0.5
	}
	if cfg.StochasticRefresh && cfg.Coefficient <= 0 {
		cfg.Coefficient = 0.5
	}
}
