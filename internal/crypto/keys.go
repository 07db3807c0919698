package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeySize is the symmetric key length in bytes (AES-256).
const KeySize = 32

// ErrKeyFormat reports malformed stored key material. A room whose key fails
// to parse is unrecoverable.
var ErrKeyFormat = errors.New("malformed encryption key")

// Key is raw symmetric key material for one room.
type Key []byte

// GenerateKey returns a fresh hex-encoded 256-bit key from the CSPRNG.
func GenerateKey() (string, error) {
	buf := make([]byte, KeySize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ParseKey decodes a stored key back into usable form.
func ParseKey(encoded string) (Key, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeyFormat, len(raw), KeySize)
	}
	return Key(raw), nil
}
