package service

import (
	"crypto/rand"
	"fmt"
	"strings"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// minSecretLength is the shortest plaintext the engine accepts. Real provider
// API keys are far longer; anything shorter is a typo or a test value.
const minSecretLength = 8

// placeholderSecrets are values that indicate a caller stored a stand-in
// instead of a real credential.
var placeholderSecrets = map[string]struct{}{
	"changeme":    {},
	"change-me":   {},
	"password":    {},
	"secret":      {},
	"placeholder": {},
	"example":     {},
	"test":        {},
	"xxx":         {},
	"your-api-key": {},
}

// EnvelopeService implements the Envelope interface.
//
// Each Encrypt generates a fresh random data key, encrypts the plaintext
// under it, wraps the exported data key under the active master key with an
// independent nonce, and zeroes the data key before returning. Decrypt
// reverses the two layers; any tag mismatch on either layer is
// ErrIntegrityFailure.
type EnvelopeService struct {
	chain       *cryptoDomain.MasterKeyChain
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewEnvelopeService creates an envelope engine bound to the given master
// keychain. The engine is stateless apart from the read-only keychain and is
// safe for concurrent use.
func NewEnvelopeService(
	chain *cryptoDomain.MasterKeyChain,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
) *EnvelopeService {
	return &EnvelopeService{
		chain:       chain,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

// Encrypt seals plaintext into a new StoredSecret at the minimum key version.
func (e *EnvelopeService) Encrypt(plaintext, aad []byte) (*cryptoDomain.StoredSecret, error) {
	if err := checkSecretStrength(plaintext); err != nil {
		return nil, err
	}
	return e.encryptAt(plaintext, aad, cryptoDomain.MinKeyVersion)
}

// encryptAt performs the two-layer encryption at an explicit key version.
func (e *EnvelopeService) encryptAt(
	plaintext, aad []byte,
	version uint,
) (*cryptoDomain.StoredSecret, error) {
	activeID := e.chain.ActiveMasterKeyID()
	masterKey, ok := e.chain.Get(activeID)
	if !ok {
		return nil, cryptoDomain.ErrMasterKeyNotFound
	}

	// Fresh one-time data key
	dataKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	defer cryptoDomain.Zero(dataKey)

	dataCipher, err := e.aeadManager.CreateCipher(dataKey, e.algorithm)
	if err != nil {
		return nil, err
	}
	ciphertext, nonce, tag, err := dataCipher.Encrypt(plaintext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	masterCipher, err := e.aeadManager.CreateCipher(masterKey.Key, e.algorithm)
	if err != nil {
		return nil, err
	}
	wrappedKey, keyNonce, keyTag, err := masterCipher.Encrypt(dataKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap data key: %w", err)
	}

	return &cryptoDomain.StoredSecret{
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		Tag:            tag,
		WrappedDataKey: wrappedKey,
		DataKeyNonce:   keyNonce,
		DataKeyTag:     keyTag,
		KeyVersion:     version,
		MasterKeyID:    masterKey.ID,
	}, nil
}

// Decrypt unwraps the data key and decrypts the stored secret.
// The caller owns the returned buffer and must zero it after use.
func (e *EnvelopeService) Decrypt(secret *cryptoDomain.StoredSecret, aad []byte) ([]byte, error) {
	if secret.KeyVersion < cryptoDomain.MinKeyVersion {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrUnsupportedVersion, secret.KeyVersion)
	}

	masterKey, ok := e.chain.Get(secret.MasterKeyID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", cryptoDomain.ErrMasterKeyNotFound, secret.MasterKeyID)
	}

	masterCipher, err := e.aeadManager.CreateCipher(masterKey.Key, e.algorithm)
	if err != nil {
		return nil, err
	}
	dataKey, err := masterCipher.Decrypt(
		secret.WrappedDataKey,
		secret.DataKeyNonce,
		secret.DataKeyTag,
		nil,
	)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrityFailure
	}
	defer cryptoDomain.Zero(dataKey)

	dataCipher, err := e.aeadManager.CreateCipher(dataKey, e.algorithm)
	if err != nil {
		return nil, err
	}
	plaintext, err := dataCipher.Decrypt(secret.Ciphertext, secret.Nonce, secret.Tag, aad)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrityFailure
	}

	return plaintext, nil
}

// Rotate re-encrypts the secret at a strictly higher version under a fresh
// data key and the active master key. The input is never mutated, so a
// failure at any point leaves the caller's stored state untouched.
func (e *EnvelopeService) Rotate(
	secret *cryptoDomain.StoredSecret,
	targetVersion uint,
	aad []byte,
) (*cryptoDomain.StoredSecret, error) {
	newVersion := secret.KeyVersion + 1
	if targetVersion != 0 {
		if targetVersion <= secret.KeyVersion {
			return nil, fmt.Errorf(
				"%w: current %d, target %d",
				cryptoDomain.ErrVersionNotHigher,
				secret.KeyVersion,
				targetVersion,
			)
		}
		newVersion = targetVersion
	}

	plaintext, err := e.Decrypt(secret, aad)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(plaintext)

	return e.encryptAt(plaintext, aad, newVersion)
}

// checkSecretStrength rejects empty, short, placeholder, and trivially
// repetitive plaintext. A format check, not a trust decision.
func checkSecretStrength(plaintext []byte) error {
	if len(plaintext) < minSecretLength {
		return fmt.Errorf("%w: shorter than %d bytes", cryptoDomain.ErrInvalidSecret, minSecretLength)
	}

	lowered := strings.ToLower(strings.TrimSpace(string(plaintext)))
	if _, found := placeholderSecrets[lowered]; found {
		return fmt.Errorf("%w: placeholder value", cryptoDomain.ErrInvalidSecret)
	}

	first := plaintext[0]
	uniform := true
	for _, b := range plaintext[1:] {
		if b != first {
			uniform = false
			break
		}
	}
	if uniform {
		return fmt.Errorf("%w: single repeated byte", cryptoDomain.ErrInvalidSecret)
	}

	return nil
}
