package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/sidevault/sidevault/internal/errors"
)

// registrationTokenService implements RegistrationTokenService using Argon2id.
type registrationTokenService struct {
	hasher *pwdhash.PasswordHasher
}

// NewRegistrationTokenService creates a RegistrationTokenService. Uses the
// Moderate policy: registration happens once per session, so the hashing cost
// is paid rarely but the stored hash must survive a database leak.
func NewRegistrationTokenService() (RegistrationTokenService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}
	return &registrationTokenService{hasher: hasher}, nil
}

// Generate creates a 32-byte random registration token and its Argon2id hash.
func (r *registrationTokenService) Generate() (string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate registration token")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)
	tokenHash, err := r.hasher.Hash([]byte(plainToken))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash registration token")
	}

	return plainToken, tokenHash, nil
}

// Compare verifies a plaintext token against its stored Argon2id hash.
func (r *registrationTokenService) Compare(plainToken string, tokenHash string) bool {
	ok, err := r.hasher.Verify([]byte(plainToken), tokenHash)
	if err != nil {
		return false
	}
	return ok
}
