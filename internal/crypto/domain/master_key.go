package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MasterKey is the root AEAD key used to wrap per-secret data keys.
//
// Master keys are loaded once at process start and never leave this package's
// consumers (the envelope engine). In production the key material should come
// wrapped by a KMS; in development/test it can be loaded directly from the
// environment.
type MasterKey struct {
	ID  string
	Key []byte
}

// KMSKeeper decrypts KMS-wrapped master key material.
// *secrets.Keeper from gocloud.dev/secrets implements it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// MasterKeyChain manages a collection of master keys with one designated as
// active. Old keys stay available to decrypt existing stored secrets while
// new encryptions and rotations use the active key.
//
// Thread safety: reads use sync.Map; the chain is effectively read-only after
// process init.
type MasterKeyChain struct {
	activeID string
	keys     sync.Map
}

// ActiveMasterKeyID returns the ID of the master key used for new encryptions.
func (m *MasterKeyChain) ActiveMasterKeyID() string {
	return m.activeID
}

// Get retrieves a master key from the keychain by its ID.
func (m *MasterKeyChain) Get(id string) (*MasterKey, bool) {
	if masterKey, ok := m.keys.Load(id); ok {
		return masterKey.(*MasterKey), ok
	}
	return nil, false
}

// Close zeroes all key material and resets the keychain. Call on shutdown.
func (m *MasterKeyChain) Close() {
	m.keys.Range(func(_, value any) bool {
		Zero(value.(*MasterKey).Key)
		return true
	})
	m.activeID = ""
	m.keys.Clear()
}

func (m *MasterKeyChain) store(id string, key []byte) {
	// Copy so the caller can zero its buffer without wiping the chain.
	owned := append([]byte(nil), key...)
	m.keys.Store(id, &MasterKey{ID: id, Key: owned})
}

// LoadMasterKeyChainFromEnv loads master keys from environment variables.
//
//	MASTER_KEYS="key1:YWJj...,key2:MTIz..."  (id:base64 of 32 raw bytes)
//	ACTIVE_MASTER_KEY_ID="key2"
//
// When keeper is non-nil, each base64 value is treated as KMS-wrapped
// ciphertext and decrypted through the keeper before use.
func LoadMasterKeyChainFromEnv(ctx context.Context, keeper KMSKeeper) (*MasterKeyChain, error) {
	raw := os.Getenv("MASTER_KEYS")
	if raw == "" {
		return nil, ErrMasterKeysNotSet
	}

	active := os.Getenv("ACTIVE_MASTER_KEY_ID")
	if active == "" {
		return nil, ErrActiveMasterKeyIDNotSet
	}

	mkc := &MasterKeyChain{activeID: active}

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 {
			mkc.Close()
			return nil, fmt.Errorf("%w: %q", ErrInvalidMasterKeysFormat, part)
		}
		id := p[0]
		key, err := base64.StdEncoding.DecodeString(p[1])
		if err != nil {
			mkc.Close()
			return nil, fmt.Errorf("%w for %s: %v", ErrInvalidMasterKeyBase64, id, err)
		}

		if keeper != nil {
			unwrapped, err := keeper.Decrypt(ctx, key)
			Zero(key)
			if err != nil {
				mkc.Close()
				return nil, fmt.Errorf("failed to decrypt master key %s via KMS: %w", id, err)
			}
			key = unwrapped
		}

		if len(key) != KeySize {
			Zero(key)
			mkc.Close()
			return nil, fmt.Errorf(
				"%w: master key %s must be %d bytes, got %d",
				ErrInvalidKeySize,
				id,
				KeySize,
				len(key),
			)
		}
		mkc.store(id, key)
		Zero(key)
	}

	if _, ok := mkc.Get(active); !ok {
		mkc.Close()
		return nil, fmt.Errorf("%w: ACTIVE_MASTER_KEY_ID=%s", ErrActiveMasterKeyNotFound, active)
	}

	return mkc, nil
}
