package codec

import (
	"github.com/tiercache/tiercache/config"
	"github.com/tiercache/tiercache/internal/cacheerr"
)

// Pipeline implements the write-side transform chain serialize -> compress
// -> encrypt -> sign and its read-side inverse. It is stateless beyond
// configuration and safe for concurrent use, per spec.md §4.1.
type Pipeline struct {
	compression *config.CompressionCfg
	encryption  *config.EncryptionCfg
	signing     *config.SigningCfg
}

func NewPipeline(cfg *config.Config) *Pipeline {
	return &Pipeline{
		compression: cfg.Compression,
		encryption:  cfg.Encryption,
		signing:     cfg.Signing,
	}
}

// Encode runs the full write-side pipeline over v and returns the framed
// payload ready to hand to a tier.
func (p *Pipeline) Encode(v any) ([]byte, error) {
	body, err := Marshal(v)
	if err != nil {
		return nil, cacheerr.NewSerializationError("serialize", err)
	}

	flag := flagUncompressed
	if p.compression.Enabled() && len(body) >= p.compression.MinSize {
		compressed, err := compress(body, p.compression.Level)
		if err != nil {
			return nil, cacheerr.NewSerializationError("compress", err)
		}
		body, flag = compressed, flagCompressed
	}

	framed := append([]byte{flag}, body...)

	if p.encryption.Enabled() {
		enc, err := encryptAEAD(framed, p.encryption.Key, p.encryption.Salt)
		if err != nil {
			return nil, cacheerr.NewSerializationError("encrypt", err)
		}
		framed = enc
	}

	if p.signing.Enabled() {
		mac, err := sign(framed, p.signing.Key, p.signing.Algorithm)
		if err != nil {
			return nil, cacheerr.NewSerializationError("sign", err)
		}
		framed = append(mac, framed...)
	}

	return framed, nil
}

// Decode reverses Encode: verify -> decrypt -> un-flag/decompress ->
// deserialize. A missing or mismatched signature, or a ciphertext that fails
// decryption, yields cacheerr.IntegrityError; every other stage failure
// yields cacheerr.SerializationError.
func (p *Pipeline) Decode(data []byte) (any, error) {
	rest := data

	if p.signing.Enabled() {
		n, err := sigLen(p.signing.Algorithm)
		if err != nil {
			return nil, cacheerr.NewSerializationError("sign-config", err)
		}
		if len(rest) < n {
			return nil, cacheerr.NewIntegrityError("", errShortSignature)
		}
		sig, body := rest[:n], rest[n:]
		ok, err := verify(body, sig, p.signing.Key, p.signing.Algorithm)
		if err != nil {
			return nil, cacheerr.NewSerializationError("verify", err)
		}
		if !ok {
			return nil, cacheerr.NewIntegrityError("", errSignatureMismatch)
		}
		rest = body
	}

	if p.encryption.Enabled() {
		dec, err := decryptAEAD(rest, p.encryption.Key, p.encryption.Salt)
		if err != nil {
			return nil, cacheerr.NewIntegrityError("", err)
		}
		rest = dec
	}

	if len(rest) < 1 {
		return nil, cacheerr.NewSerializationError("flag", errEmptyFrame)
	}
	flag, body := rest[0], rest[1:]

	switch flag {
	case flagCompressed:
		out, err := decompress(body)
		if err != nil {
			return nil, cacheerr.NewSerializationError("decompress", err)
		}
		body = out
	case flagUncompressed:
	default:
		return nil, cacheerr.NewSerializationError("flag", errUnknownFlag)
	}

	v, err := Unmarshal(body)
	if err != nil {
		return nil, cacheerr.NewSerializationError("deserialize", err)
	}
	return v, nil
}
