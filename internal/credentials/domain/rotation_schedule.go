package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationSchedule is a pending scheduled rotation. At most one exists per
// (UserID, Provider); re-scheduling updates RunAt rather than duplicating.
type RotationSchedule struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Provider  string
	RunAt     time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
