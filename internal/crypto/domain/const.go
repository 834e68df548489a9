package domain

// Algorithm identifies an AEAD cipher used for envelope encryption.
type Algorithm string

const (
	// AESGCM is AES-256-GCM, the default algorithm.
	AESGCM Algorithm = "aes-gcm"
	// ChaCha20 is ChaCha20-Poly1305, for platforms without AES hardware support.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the required size in bytes for all symmetric keys
	// (master keys and data keys).
	KeySize = 32

	// TagSize is the AEAD authentication tag size in bytes.
	TagSize = 16

	// MinKeyVersion is the lowest valid StoredSecret key version. A version
	// below this is unsupported and must be rejected on decrypt.
	MinKeyVersion = 1
)
