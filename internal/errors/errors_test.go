package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "session lookup")
		assert.Error(t, err)
		assert.True(t, Is(err, ErrNotFound))
		assert.Equal(t, "session lookup: not found", err.Error())
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "anything"))
	})

	t.Run("chain survives double wrapping", func(t *testing.T) {
		err := Wrap(Wrap(ErrIntegrity, "unwrap data key"), "decrypt credential")
		assert.True(t, Is(err, ErrIntegrity))
	})
}

func TestSentinelDistinctness(t *testing.T) {
	// Expired and integrity failures must stay distinguishable: one means
	// "refresh", the other means "tampered blob".
	assert.False(t, Is(ErrExpired, ErrIntegrity))
	assert.False(t, Is(ErrIntegrity, ErrExpired))
	assert.False(t, Is(ErrInvalidState, ErrConflict))
}
