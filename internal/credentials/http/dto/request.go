// Package dto provides data transfer objects for the credential endpoints.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"
)

// StoreCredentialRequest carries a base64-encoded provider secret. The user
// and provider come from the URL, not the body.
type StoreCredentialRequest struct {
	Value string `json:"value" binding:"required"`
}

// Validate checks the store request.
func (r *StoreCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value, validation.Required),
	)
}

// RotateCredentialRequest optionally pins the target key version.
// Zero means current version plus one.
type RotateCredentialRequest struct {
	TargetVersion uint `json:"target_version"`
}

// RotateAllRequest configures a batch rotation.
type RotateAllRequest struct {
	Providers         []string `json:"providers"`
	RollbackOnFailure bool     `json:"rollback_on_failure"`
}

// ScheduleRotationRequest schedules a rotation at a future instant.
type ScheduleRotationRequest struct {
	RunAt time.Time `json:"run_at" binding:"required"`
}

// Validate checks the schedule request.
func (r *ScheduleRotationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RunAt, validation.Required),
	)
}
