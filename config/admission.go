package config

// AdmissionCfg configures TinyLFU-style admission control gating writes
// into the memory tier once it is at capacity. A nil *AdmissionCfg means a
// no-op admission controller: everything is admitted unconditionally.
//
// This is a supplemental feature (see SPEC_FULL.md §3) ported from the
// teacher's bloom-filter package; it is off by default so it never
// perturbs the deterministic eviction traces the memory tier is tested
// against.
type AdmissionCfg struct {
	Capacity            int `yaml:"capacity"`
	Shards              int `yaml:"shards"`
	MinTableLenPerShard int `yaml:"min_table_len_per_shard"`
	SampleMultiplier    int `yaml:"sample_multiplier"`
	DoorBitsPerCounter  int `yaml:"door_bits_per_counter"`
}

func (cfg *AdmissionCfg) Enabled() bool { return cfg != nil }
