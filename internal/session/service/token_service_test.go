package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidevault/sidevault/internal/session/domain"
)

func TestRegistrationTokenService(t *testing.T) {
	svc, err := NewRegistrationTokenService()
	require.NoError(t, err)

	plainToken, tokenHash, err := svc.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, plainToken)
	assert.NotEqual(t, plainToken, tokenHash)

	assert.True(t, svc.Compare(plainToken, tokenHash))
	assert.False(t, svc.Compare("wrong-token", tokenHash))
	assert.False(t, svc.Compare(plainToken, "not-a-hash"))
}

func TestSidecarTokenService(t *testing.T) {
	svc := NewSidecarTokenService(24 * time.Hour)

	plainToken, tokenHash, nonce, err := svc.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, plainToken)
	assert.Len(t, tokenHash, 64)
	assert.Len(t, nonce, 32)

	issuedAt := time.Now().UTC()
	session := &domain.Session{
		SidecarTokenHash:     tokenHash,
		SidecarTokenNonce:    nonce,
		SidecarTokenIssuedAt: &issuedAt,
	}

	t.Run("valid token", func(t *testing.T) {
		assert.NoError(t, svc.Verify(session, plainToken, issuedAt.Add(time.Hour)))
	})

	t.Run("wrong token", func(t *testing.T) {
		err := svc.Verify(session, "wrong-token", issuedAt.Add(time.Hour))
		assert.ErrorIs(t, err, domain.ErrInvalidSessionOrToken)
	})

	t.Run("expired token", func(t *testing.T) {
		err := svc.Verify(session, plainToken, issuedAt.Add(25*time.Hour))
		assert.ErrorIs(t, err, domain.ErrSidecarTokenExpired)
	})

	t.Run("session without token material", func(t *testing.T) {
		err := svc.Verify(&domain.Session{}, plainToken, issuedAt)
		assert.ErrorIs(t, err, domain.ErrInvalidSessionOrToken)
	})

	t.Run("tokens are unique", func(t *testing.T) {
		other, _, _, err := svc.Generate()
		require.NoError(t, err)
		assert.NotEqual(t, plainToken, other)
	})
}
