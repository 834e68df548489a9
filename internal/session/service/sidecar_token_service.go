package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	apperrors "github.com/sidevault/sidevault/internal/errors"
	"github.com/sidevault/sidevault/internal/session/domain"
)

// sidecarTokenService implements SidecarTokenService using SHA-256 hashing.
// Sidecar tokens are verified on every call, so unlike registration tokens
// they use a fast hash; the token itself is 256 bits of entropy.
type sidecarTokenService struct {
	ttl time.Duration
}

// NewSidecarTokenService creates a SidecarTokenService with the given token TTL.
func NewSidecarTokenService(ttl time.Duration) SidecarTokenService {
	return &sidecarTokenService{ttl: ttl}
}

// Generate creates a 32-byte random sidecar token, its SHA-256 hash, and a
// random nonce stored alongside the hash.
func (s *sidecarTokenService) Generate() (string, string, string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to generate sidecar token")
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", "", "", apperrors.Wrap(err, "failed to generate token nonce")
	}

	plainToken := base64.URLEncoding.EncodeToString(randomBytes)
	return plainToken, hashToken(plainToken), hex.EncodeToString(nonceBytes), nil
}

// Verify checks the token against the session's stored hash and TTL. All
// failure modes collapse into ErrInvalidSessionOrToken except expiry, which
// the sidecar needs to distinguish to trigger a re-registration.
func (s *sidecarTokenService) Verify(session *domain.Session, plainToken string, now time.Time) error {
	if session.SidecarTokenHash == "" || session.SidecarTokenIssuedAt == nil {
		return domain.ErrInvalidSessionOrToken
	}

	expected := []byte(session.SidecarTokenHash)
	actual := []byte(hashToken(plainToken))
	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		return domain.ErrInvalidSessionOrToken
	}

	if now.Sub(*session.SidecarTokenIssuedAt) > s.ttl {
		return domain.ErrSidecarTokenExpired
	}
	return nil
}

func hashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
