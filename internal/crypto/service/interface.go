// Package service implements the cryptographic services for envelope
// encryption: AEAD ciphers, the cipher factory, KMS access, and the
// envelope engine itself.
package service

import (
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// AEAD provides authenticated encryption with a detached tag.
//
// Unlike the Go standard library convention of appending the tag to the
// ciphertext, implementations return ciphertext and tag separately so the
// StoredSecret's eight fields can be persisted verbatim.
type AEAD interface {
	// Encrypt encrypts plaintext with a fresh random nonce, authenticating aad.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce, tag []byte, err error)

	// Decrypt verifies the tag and decrypts. Any mismatch of ciphertext,
	// nonce, tag, or aad is an authentication error.
	Decrypt(ciphertext, nonce, tag, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD cipher instances for a key and algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Envelope is the envelope encryption engine: it seals plaintext credentials
// into StoredSecrets under a one-time data key wrapped by the master key, and
// re-wraps them on rotation.
type Envelope interface {
	// Encrypt seals plaintext into a new StoredSecret at MinKeyVersion.
	// Rejects weak or placeholder plaintext with ErrInvalidSecret.
	Encrypt(plaintext, aad []byte) (*cryptoDomain.StoredSecret, error)

	// Decrypt unwraps the data key and returns the plaintext. The caller owns
	// the returned buffer and must zero it after use.
	Decrypt(secret *cryptoDomain.StoredSecret, aad []byte) ([]byte, error)

	// Rotate decrypts and re-encrypts at a strictly higher version under the
	// active master key. targetVersion 0 means current+1. The input secret is
	// never mutated; on any failure the caller's stored state is untouched.
	Rotate(secret *cryptoDomain.StoredSecret, targetVersion uint, aad []byte) (*cryptoDomain.StoredSecret, error)
}
