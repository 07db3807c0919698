package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyLengthAndUniqueness(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)

	assert.Len(t, k1, KeySize*2)
	assert.NotEqual(t, k1, k2)
}

func TestParseKeyRoundTrip(t *testing.T) {
	encoded, err := GenerateKey()
	require.NoError(t, err)

	key, err := ParseKey(encoded)
	require.NoError(t, err)
	assert.Len(t, []byte(key), KeySize)
}

func TestParseKeyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"not hex":     "zzzz",
		"empty":       "",
		"wrong size":  "deadbeef",
		"odd length":  strings.Repeat("a", 63),
		"double size": strings.Repeat("ab", KeySize*2),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseKey(input)
			assert.ErrorIs(t, err, ErrKeyFormat)
		})
	}
}
