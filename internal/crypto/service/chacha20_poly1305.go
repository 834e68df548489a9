package service

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// ChaCha20Poly1305Cipher implements the AEAD interface using
// ChaCha20-Poly1305 with a detached tag. Constant-time in software, so it is
// the better choice on hosts without AES-NI.
type ChaCha20Poly1305Cipher struct {
	key []byte
}

// NewChaCha20Poly1305 creates a new ChaCha20-Poly1305 cipher.
// The key must be exactly 32 bytes.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("key must be exactly 32 bytes")
	}
	owned := append([]byte(nil), key...)
	return &ChaCha20Poly1305Cipher{key: owned}, nil
}

// Encrypt encrypts plaintext with a fresh random nonce, authenticating aad.
func (c *ChaCha20Poly1305Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create chacha20-poly1305: %w", err)
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - cryptoDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt verifies the detached tag and decrypts the ciphertext.
func (c *ChaCha20Poly1305Cipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create chacha20-poly1305: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
