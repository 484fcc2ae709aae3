package config

import "fmt"

// EncryptionCfg configures the codec's AEAD encryption stage. A nil
// *EncryptionCfg disables encryption.
type EncryptionCfg struct {
	// Key is the passphrase material the AEAD key is derived from.
	Key string `yaml:"encryption_key"`

	// Salt is mixed into the key derivation so the same Key produces
	// different derived keys across deployments.
	Salt string `yaml:"encryption_salt"`
}

func (cfg *EncryptionCfg) Enabled() bool { return cfg != nil }

func (cfg *EncryptionCfg) validate() error {
	if cfg.Key == "" {
		return fmt.Errorf("config: encryption_key must be set when encryption is enabled")
	}
	if cfg.Salt == "" {
		return fmt.Errorf("config: encryption_salt must be set when encryption is enabled")
	}
	return nil
}
