package exchange

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	// uncompressedPointSize is the byte length of an uncompressed P-256 point
	// (0x04 prefix + two 32-byte coordinates).
	uncompressedPointSize = 65

	keyIDPrefix      = "ek-"
	keyIDRandomBytes = 16
)

var keyIDPattern = regexp.MustCompile(`^ek-[0-9a-f]{32}$`)

// EphemeralKeyPair is a freshly generated P-256 key pair used for exactly one
// registration or refresh handshake. The private half never leaves its
// generator.
type EphemeralKeyPair struct {
	// KeyID identifies this key pair on the wire (ek-<32 hex>).
	KeyID string
	// PublicKey is the base64-encoded uncompressed point.
	PublicKey string
	// PrivateKey stays in-process; it is nil after Destroy.
	PrivateKey *ecdh.PrivateKey
}

// Destroy drops the private key reference. ecdh private keys are opaque and
// cannot be zeroed in place; releasing the only reference is the best
// available hygiene.
func (kp *EphemeralKeyPair) Destroy() {
	kp.PrivateKey = nil
}

// GenerateEphemeralKeyPair generates an independent P-256 key pair. Every
// call draws fresh randomness; there is no caching, determinism, or reuse.
func GenerateEphemeralKeyPair() (*EphemeralKeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key pair: %w", err)
	}

	idBytes := make([]byte, keyIDRandomBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	return &EphemeralKeyPair{
		KeyID:      keyIDPrefix + hex.EncodeToString(idBytes),
		PublicKey:  base64.StdEncoding.EncodeToString(priv.PublicKey().Bytes()),
		PrivateKey: priv,
	}, nil
}

// ValidatePublicKey checks that s is a base64-encoded uncompressed P-256
// point of the right length. Cheap enough to run before any store lookup.
func ValidatePublicKey(s string) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: not base64", ErrInvalidPublicKey)
	}
	if len(raw) != uncompressedPointSize || raw[0] != 0x04 {
		return fmt.Errorf("%w: not an uncompressed P-256 point", ErrInvalidPublicKey)
	}
	return nil
}

// ValidateKeyID checks the ek-<32 hex> key id format.
func ValidateKeyID(s string) error {
	if !keyIDPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidKeyID, s)
	}
	return nil
}

// ParsePublicKey decodes and validates an encoded public key into a usable
// ECDH public key. Rejects off-curve points.
func ParsePublicKey(s string) (*ecdh.PublicKey, error) {
	if err := ValidatePublicKey(s); err != nil {
		return nil, err
	}
	raw, _ := base64.StdEncoding.DecodeString(s)
	pub, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return pub, nil
}
