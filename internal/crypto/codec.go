package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt reports an inconsistent key/iv/ciphertext combination. GCM
// authentication means a wrong key fails closed rather than yielding garbage.
var ErrDecrypt = errors.New("unable to decrypt message")

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns ciphertext and iv independently base64-encoded for storage. The
// nonce must never be reused with the same key, so one is drawn per call.
func Encrypt(plaintext string, key Key) (ciphertext, iv string, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", "", fmt.Errorf("encrypt: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("encrypt: %w", err)
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", "", fmt.Errorf("encrypt: %w", err)
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), base64.StdEncoding.EncodeToString(nonce), nil
}

// Decrypt is the inverse of Encrypt.
func Decrypt(ciphertext, iv string, key Key) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext encoding", ErrDecrypt)
	}
	nonce, err := base64.StdEncoding.DecodeString(iv)
	if err != nil {
		return "", fmt.Errorf("%w: bad iv encoding", ErrDecrypt)
	}
	if len(nonce) != aesgcm.NonceSize() {
		return "", fmt.Errorf("%w: bad iv length", ErrDecrypt)
	}

	plain, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}
