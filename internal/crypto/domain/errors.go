package domain

import (
	"github.com/sidevault/sidevault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// so handlers can map them to transport status codes without inspecting
// crypto internals.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	// Supported algorithms: aes-gcm, chacha20-poly1305.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a symmetric key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidSecret indicates the plaintext was rejected before encryption:
	// empty, too short, or a known placeholder value.
	ErrInvalidSecret = errors.Wrap(errors.ErrInvalidInput, "invalid secret")

	// ErrUnsupportedVersion indicates a StoredSecret carries a key version this
	// engine cannot decrypt.
	ErrUnsupportedVersion = errors.Wrap(errors.ErrInvalidInput, "unsupported key version")

	// ErrVersionNotHigher indicates a rotation targeted a version that does not
	// exceed the stored secret's current version.
	ErrVersionNotHigher = errors.Wrap(errors.ErrInvalidInput, "target version must exceed current version")

	// ErrIntegrityFailure indicates an AEAD authentication tag mismatch while
	// unwrapping a data key or decrypting a payload. The blob is fatal; the
	// specific cause is not disclosed to prevent information leakage.
	ErrIntegrityFailure = errors.Wrap(errors.ErrIntegrity, "aead authentication failed")

	// ErrMasterKeyNotFound indicates a StoredSecret references a master key id
	// that is not loaded in the keychain.
	ErrMasterKeyNotFound = errors.Wrap(errors.ErrInvalidInput, "master key not found")
)

// Master key loading errors.
var (
	ErrMasterKeysNotSet        = errors.New("MASTER_KEYS environment variable is not set")
	ErrActiveMasterKeyIDNotSet = errors.New("ACTIVE_MASTER_KEY_ID environment variable is not set")
	ErrInvalidMasterKeysFormat = errors.New("invalid MASTER_KEYS format, expected id:base64key")
	ErrInvalidMasterKeyBase64  = errors.New("invalid base64 in MASTER_KEYS")
	ErrActiveMasterKeyNotFound = errors.New("active master key not found in keychain")
)
