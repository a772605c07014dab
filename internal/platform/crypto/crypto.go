// Package crypto seals OAuth credentials before they are written to Postgres.
//
// Ciphertexts are bound to the owning user through AES-GCM associated data,
// so a row copied onto another user fails to open.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrCiphertextTooShort is returned when the input cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

type Cipher interface {
	Seal(plaintext, owner string) (string, error)
	Open(ciphertext, owner string) (string, error)
}

type AESGCM struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewAESGCM expects a 64 character hex key (AES-256).
func NewAESGCM(hexKey string) (*AESGCM, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCM{aead: aead, rand: rand.Reader}, nil
}

// Seal returns hex(nonce || ciphertext || tag).
func (c *AESGCM) Seal(plaintext, owner string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), []byte(owner))
	return hex.EncodeToString(sealed), nil
}

func (c *AESGCM) Open(ciphertext, owner string) (string, error) {
	buf, err := hex.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	n := c.aead.NonceSize()
	if len(buf) < n {
		return "", ErrCiphertextTooShort
	}

	plain, err := c.aead.Open(nil, buf[:n], buf[n:], []byte(owner))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plain), nil
}
