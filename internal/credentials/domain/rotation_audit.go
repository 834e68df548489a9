package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationAuditEntry records one rotation attempt. Immutable and append-only;
// written ALWAYS, including on failure, so the audit trail has no gaps.
type RotationAuditEntry struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Provider   string
	OldVersion uint
	NewVersion uint
	Success    bool
	// Error holds the failure reason when Success is false, empty otherwise.
	Error     string
	CreatedAt time.Time
}
