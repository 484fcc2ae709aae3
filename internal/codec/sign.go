package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/tiercache/tiercache/config"
)

func macFor(algo config.SigningAlgorithm) (func() hash.Hash, int, error) {
	switch algo {
	case config.SigningSHA256:
		return sha256.New, sha256.Size, nil
	case config.SigningSHA384:
		return sha512.New384, sha512.Size384, nil
	case config.SigningSHA512:
		return sha512.New, sha512.Size, nil
	default:
		return nil, 0, fmt.Errorf("codec: unknown signing algorithm %q", algo)
	}
}

// sign returns the keyed MAC of data. The caller prepends it as the SIG
// prefix, whose length is fixed per algorithm so a reader knows where it
// ends without a separate length field.
func sign(data []byte, key string, algo config.SigningAlgorithm) ([]byte, error) {
	newHash, _, err := macFor(algo)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newHash, []byte(key))
	mac.Write(data)
	return mac.Sum(nil), nil
}

// verify recomputes the MAC over data and compares it to sig in constant time.
func verify(data, sig []byte, key string, algo config.SigningAlgorithm) (bool, error) {
	expected, err := sign(data, key, algo)
	if err != nil {
		return false, err
	}
	return hmac.Equal(expected, sig), nil
}

func sigLen(algo config.SigningAlgorithm) (int, error) {
	_, n, err := macFor(algo)
	return n, err
}
