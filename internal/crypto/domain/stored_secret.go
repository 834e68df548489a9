package domain

// StoredSecret is the durable envelope-encrypted form of a credential.
//
// The plaintext is encrypted under a one-time data key; the data key is
// wrapped under the master key identified by MasterKeyID. All eight fields
// must be preserved verbatim by any storage backend.
type StoredSecret struct {
	// Ciphertext is the credential encrypted under the data key (tag excluded).
	Ciphertext []byte
	// Nonce is the nonce used to encrypt the credential.
	Nonce []byte
	// Tag is the AEAD authentication tag over the credential ciphertext.
	Tag []byte
	// WrappedDataKey is the data key encrypted under the master key (tag excluded).
	WrappedDataKey []byte
	// DataKeyNonce is the nonce used to wrap the data key. Independent of Nonce.
	DataKeyNonce []byte
	// DataKeyTag is the AEAD authentication tag over the wrapped data key.
	DataKeyTag []byte
	// KeyVersion strictly increases across rotations, starting at MinKeyVersion.
	KeyVersion uint
	// MasterKeyID identifies the master key the data key is wrapped under.
	MasterKeyID string
}

// Clone returns a deep copy. Rotation snapshots the original so a failed
// rotation never exposes partial state.
func (s *StoredSecret) Clone() *StoredSecret {
	if s == nil {
		return nil
	}
	c := &StoredSecret{
		Ciphertext:     append([]byte(nil), s.Ciphertext...),
		Nonce:          append([]byte(nil), s.Nonce...),
		Tag:            append([]byte(nil), s.Tag...),
		WrappedDataKey: append([]byte(nil), s.WrappedDataKey...),
		DataKeyNonce:   append([]byte(nil), s.DataKeyNonce...),
		DataKeyTag:     append([]byte(nil), s.DataKeyTag...),
		KeyVersion:     s.KeyVersion,
		MasterKeyID:    s.MasterKeyID,
	}
	return c
}
