package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"wallet-custody/internal/core/domain"
)

// ErrAuthenticationFailed means the blob did not verify under the key: either
// the key is wrong or the blob was modified. The two are indistinguishable.
var ErrAuthenticationFailed = errors.New("ciphertext authentication failed")

const gcmTagSize = 16

// AESGCMCipher implements ports.Cipher using AES-256-GCM.
// Blob layout: nonce(12) || ciphertext || tag(16).
type AESGCMCipher struct {
	rand io.Reader
}

// NewAESGCMCipher creates a cipher that draws nonces from crypto/rand.
func NewAESGCMCipher() *AESGCMCipher {
	return &AESGCMCipher{rand: rand.Reader}
}

// Seal encrypts plaintext under key with a fresh random nonce.
func (c *AESGCMCipher) Seal(plaintext, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, domain.NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// Open verifies and decrypts a blob produced by Seal.
func (c *AESGCMCipher) Open(blob, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < domain.NonceSize+gcmTagSize {
		return nil, ErrAuthenticationFailed
	}

	nonce, ciphertext := blob[:domain.NonceSize], blob[domain.NonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("AES key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aesGCM, nil
}
