package exchange

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// hkdfInfo domain-separates the derived AEAD key from any other use of the
// same ECDH shared secret.
const hkdfInfo = "sidevault/sealed-payload/v1"

// SealedPayload is an AEAD bundle of named plaintext secrets bound to one
// recipient public key and one creation time. Immutable once created.
type SealedPayload struct {
	Ciphertext     []byte
	Nonce          []byte
	Tag            []byte
	RecipientKeyID string
}

// sealedEnvelope is the serialized form inside the ciphertext. Go's JSON
// encoder writes map keys in sorted order, which keeps the serialization
// deterministic for a given secret set and timestamp.
type sealedEnvelope struct {
	Secrets   map[string]string `json:"secrets"`
	CreatedAt int64             `json:"created_at"`
}

// Sealer packages and unpacks sealed payloads with a fixed freshness window.
// Stateless apart from configuration; safe for concurrent use.
type Sealer struct {
	freshness time.Duration
	now       func() time.Time
}

// NewSealer creates a Sealer. Payloads older than freshness fail to unpack
// with ErrPayloadExpired.
func NewSealer(freshness time.Duration) *Sealer {
	return &Sealer{freshness: freshness, now: time.Now}
}

// PackageSecrets seals the named secrets for the holder of recipientPublicKey.
//
// The AEAD key is derived via HKDF-SHA256 from ECDH(senderPrivate,
// recipientPublic); the recipient key id is authenticated as associated data
// so it cannot be swapped in transit.
func (s *Sealer) PackageSecrets(
	secrets map[string]string,
	recipientPublicKey string,
	senderPrivate *ecdh.PrivateKey,
	recipientKeyID string,
) (*SealedPayload, error) {
	if err := ValidateKeyID(recipientKeyID); err != nil {
		return nil, err
	}
	recipientPub, err := ParsePublicKey(recipientPublicKey)
	if err != nil {
		return nil, err
	}

	key, err := deriveSealingKey(senderPrivate, recipientPub)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	plaintext, err := json.Marshal(sealedEnvelope{
		Secrets:   secrets,
		CreatedAt: s.now().Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize sealed payload: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, []byte(recipientKeyID))
	split := len(sealed) - cryptoDomain.TagSize

	return &SealedPayload{
		Ciphertext:     sealed[:split],
		Nonce:          nonce,
		Tag:            sealed[split:],
		RecipientKeyID: recipientKeyID,
	}, nil
}

// UnpackSecrets re-derives the shared secret from the recipient's private key
// and the sender's public key, verifies the tag, and checks freshness.
//
// Any altered byte of ciphertext, nonce, or tag returns ErrIntegrityFailure.
// An intact payload older than the freshness window returns ErrPayloadExpired
// instead, distinguishing corruption from replay.
func (s *Sealer) UnpackSecrets(
	payload *SealedPayload,
	recipientPrivate *ecdh.PrivateKey,
	senderPublicKey string,
) (map[string]string, error) {
	senderPub, err := ParsePublicKey(senderPublicKey)
	if err != nil {
		return nil, err
	}

	key, err := deriveSealingKey(recipientPrivate, senderPub)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(payload.Ciphertext)+len(payload.Tag))
	sealed = append(sealed, payload.Ciphertext...)
	sealed = append(sealed, payload.Tag...)

	plaintext, err := aead.Open(nil, payload.Nonce, sealed, []byte(payload.RecipientKeyID))
	if err != nil {
		return nil, ErrIntegrityFailure
	}
	defer cryptoDomain.Zero(plaintext)

	var envelope sealedEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return nil, ErrIntegrityFailure
	}

	age := s.now().Sub(time.Unix(envelope.CreatedAt, 0))
	if age > s.freshness {
		return nil, fmt.Errorf("%w: sealed %s ago", ErrPayloadExpired, age.Truncate(time.Second))
	}

	return envelope.Secrets, nil
}

// deriveSealingKey computes ECDH and stretches the shared secret into a
// 32-byte AEAD key with HKDF-SHA256.
func deriveSealingKey(private *ecdh.PrivateKey, public *ecdh.PublicKey) ([]byte, error) {
	shared, err := private.ECDH(public)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement failed: %w", err)
	}
	defer cryptoDomain.Zero(shared)

	key := make([]byte, cryptoDomain.KeySize)
	reader := hkdf.New(sha256.New, shared, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("hkdf derivation failed: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
