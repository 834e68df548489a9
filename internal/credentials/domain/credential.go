// Package domain defines the stored credential entities: envelope-encrypted
// provider secrets, their rotation audit trail, and rotation schedules.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
)

// Credential is a user's API credential for one third-party provider,
// envelope-encrypted at rest. Unique per (UserID, Provider): created on first
// store, mutated in place on update and rotation, deleted on explicit removal.
type Credential struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Provider string
	// Secret holds the eight envelope fields. KeyVersion strictly increases
	// across rotations.
	Secret    cryptoDomain.StoredSecret
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AAD returns the associated data binding the ciphertext to its owner and
// provider, so a blob copied between rows fails authentication.
func (c *Credential) AAD() []byte {
	return []byte(c.UserID.String() + "|" + c.Provider)
}
