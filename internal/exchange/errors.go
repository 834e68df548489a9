// Package exchange implements ephemeral ECDH key exchange and single-recipient
// sealed delivery of named secrets.
//
// Every key pair is generated fresh and never reused across sessions; this is
// what provides forward secrecy. Sealed payloads are bound to one recipient
// public key and one creation time, and refuse to open once their freshness
// window elapses.
package exchange

import (
	"github.com/sidevault/sidevault/internal/errors"
)

var (
	// ErrInvalidPublicKey indicates a public key string is not a base64-encoded
	// uncompressed P-256 point. A format check, never a trust decision.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key format")

	// ErrInvalidKeyID indicates a key id does not match the ek-<32 hex> format.
	ErrInvalidKeyID = errors.Wrap(errors.ErrInvalidInput, "invalid key id format")

	// ErrIntegrityFailure indicates any altered byte of a sealed payload's
	// ciphertext, nonce, or tag. Distinct from ErrPayloadExpired: this is
	// corruption, not staleness.
	ErrIntegrityFailure = errors.Wrap(errors.ErrIntegrity, "sealed payload authentication failed")

	// ErrPayloadExpired indicates a sealed payload's embedded creation
	// timestamp is outside the freshness window. Resolved by re-registering
	// or refreshing, never by retrying the unpack.
	ErrPayloadExpired = errors.Wrap(errors.ErrExpired, "sealed payload outside freshness window")
)
