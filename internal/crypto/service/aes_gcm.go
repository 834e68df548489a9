package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// AESGCMCipher implements the AEAD interface using AES-256-GCM with a
// detached authentication tag.
//
// The cipher instance is stateless and safe for concurrent use. Each
// encryption generates a unique random 12-byte nonce; with GCM, nonces must
// never be reused under the same key.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher. The key must be exactly
// 32 bytes and should come from crypto/rand.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, errors.New("key must be exactly 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext with a fresh random nonce, authenticating aad.
// The 16-byte tag is returned separately from the ciphertext.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := a.aead.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - cryptoDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// Decrypt verifies the detached tag and decrypts the ciphertext. The same aad
// used during encryption must be provided. On any authentication failure no
// plaintext is returned.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error) {
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
