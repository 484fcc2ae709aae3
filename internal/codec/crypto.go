package codec

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// deriveKey derives a deterministic chacha20poly1305 key from (key, salt)
// via HKDF-SHA256, so the same (encryption_key, encryption_salt) pair
// always yields the same AEAD key without storing the key itself anywhere.
func deriveKey(key, salt string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(key), []byte(salt), []byte("tiercache-codec-aead"))
	out := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("codec: derive key: %w", err)
	}
	return out, nil
}

// encryptAEAD seals data with a freshly random nonce and returns
// nonce||ciphertext, matching the ENC envelope spec.md §6 describes.
func encryptAEAD(data []byte, key, salt string) ([]byte, error) {
	derived, err := deriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(derived)
	if err != nil {
		return nil, fmt.Errorf("codec: new aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("codec: read nonce: %w", err)
	}
	sealed := aead.Seal(nil, nonce, data, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// decryptAEAD reverses encryptAEAD; any tampering surfaces as an error the
// caller wraps into cacheerr.IntegrityError.
func decryptAEAD(data []byte, key, salt string) ([]byte, error) {
	derived, err := deriveKey(key, salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(derived)
	if err != nil {
		return nil, fmt.Errorf("codec: new aead: %w", err)
	}
	if len(data) < aead.NonceSize() {
		return nil, fmt.Errorf("codec: ciphertext shorter than nonce")
	}
	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	out, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("codec: aead open: %w", err)
	}
	return out, nil
}
