package config

import "fmt"

// CompressionCfg configures on-the-fly value compression. A nil
// *CompressionCfg disables compression; the codec then always prepends the
// 'U' flag byte.
type CompressionCfg struct {
	// MinSize is the minimum serialized length, in bytes, before
	// compression is attempted. Smaller payloads are stored uncompressed
	// (with the 'U' flag) since compression overhead would not pay off.
	MinSize int `yaml:"compression_min_size"`

	// Level is the flate compression level, 1 (fastest) through 9 (best
	// ratio); flate.NoCompression (0), flate.DefaultCompression (-1) and
	// flate.HuffmanOnly (-2) are also accepted.
	Level int `yaml:"compression_level"`
}

func (cfg *CompressionCfg) Enabled() bool { return cfg != nil }

func (cfg *CompressionCfg) validate() error {
	if cfg.Level < -2 || cfg.Level > 9 {
		return fmt.Errorf("config: compression_level %d out of range [-2,9]", cfg.Level)
	}
	return nil
}
