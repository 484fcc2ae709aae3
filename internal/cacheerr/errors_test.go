package cacheerr

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateKey_RejectsInvalidShapes(t *testing.T) {
	cases := []string{
		"",
		strings.Repeat("k", MaxKeyLength+1),
		"bad\x00key",
		"bad\tkey",
	}
	for _, key := range cases {
		err := ValidateKey(key)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrInvalidKey))
		var keyErr *KeyError
		require.True(t, errors.As(err, &keyErr))
	}
}

func TestValidateKey_AcceptsWellFormedKeys(t *testing.T) {
	require.NoError(t, ValidateKey("user:42"))
	require.NoError(t, ValidateKey(strings.Repeat("k", MaxKeyLength)))
}
