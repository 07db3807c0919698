package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) Key {
	t.Helper()
	encoded, err := GenerateKey()
	require.NoError(t, err)
	key, err := ParseKey(encoded)
	require.NoError(t, err)
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := mustKey(t)

	for _, plaintext := range []string{"hello", "", "emoji \U0001F44B", "line\nbreaks\tand spaces"} {
		ciphertext, iv, err := Encrypt(plaintext, key)
		require.NoError(t, err)

		got, err := Decrypt(ciphertext, iv, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptNeverReusesIV(t *testing.T) {
	key := mustKey(t)

	c1, iv1, err := Encrypt("same text", key)
	require.NoError(t, err)
	c2, iv2, err := Encrypt("same text", key)
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
	assert.NotEqual(t, c1, c2)
}

func TestDecryptWrongKeyFailsClosed(t *testing.T) {
	ciphertext, iv, err := Encrypt("secret", mustKey(t))
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, iv, mustKey(t))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptCorruptedInput(t *testing.T) {
	key := mustKey(t)
	ciphertext, iv, err := Encrypt("secret", key)
	require.NoError(t, err)

	_, err = Decrypt("AAAA"+ciphertext, iv, key)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt(ciphertext, "!!not-base64!!", key)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt(ciphertext, "c2hvcnQ=", key)
	assert.ErrorIs(t, err, ErrDecrypt)
}
