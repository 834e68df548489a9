package dto

import (
	"time"

	"github.com/sidevault/sidevault/internal/credentials/domain"
	"github.com/sidevault/sidevault/internal/credentials/usecase"
)

// CredentialResponse exposes credential metadata. Ciphertext and key material
// never leave the service through this surface.
type CredentialResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Provider    string    `json:"provider"`
	KeyVersion  uint      `json:"key_version"`
	MasterKeyID string    `json:"master_key_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapCredentialToResponse converts a credential to its metadata response.
func MapCredentialToResponse(credential *domain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:          credential.ID.String(),
		UserID:      credential.UserID.String(),
		Provider:    credential.Provider,
		KeyVersion:  credential.Secret.KeyVersion,
		MasterKeyID: credential.Secret.MasterKeyID,
		CreatedAt:   credential.CreatedAt,
		UpdatedAt:   credential.UpdatedAt,
	}
}

// MapCredentialsToResponse converts a credential list.
func MapCredentialsToResponse(credentials []*domain.Credential) []CredentialResponse {
	responses := make([]CredentialResponse, 0, len(credentials))
	for _, credential := range credentials {
		responses = append(responses, MapCredentialToResponse(credential))
	}
	return responses
}

// RotationAuditResponse exposes one rotation audit entry.
type RotationAuditResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	OldVersion uint      `json:"old_version"`
	NewVersion uint      `json:"new_version"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MapAuditEntryToResponse converts a rotation audit entry.
func MapAuditEntryToResponse(entry *domain.RotationAuditEntry) RotationAuditResponse {
	return RotationAuditResponse{
		ID:         entry.ID.String(),
		UserID:     entry.UserID.String(),
		Provider:   entry.Provider,
		OldVersion: entry.OldVersion,
		NewVersion: entry.NewVersion,
		Success:    entry.Success,
		Error:      entry.Error,
		CreatedAt:  entry.CreatedAt,
	}
}

// MapAuditEntriesToResponse converts an audit entry list.
func MapAuditEntriesToResponse(entries []*domain.RotationAuditEntry) []RotationAuditResponse {
	responses := make([]RotationAuditResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, MapAuditEntryToResponse(entry))
	}
	return responses
}

// RotateAllResponse is the structured batch rotation report.
type RotateAllResponse struct {
	Results    []usecase.ProviderRotationResult `json:"results"`
	Succeeded  int                              `json:"succeeded"`
	Failed     int                              `json:"failed"`
	RolledBack bool                             `json:"rolled_back"`
}

// MapRotateAllResultToResponse converts a batch rotation result.
func MapRotateAllResultToResponse(result *usecase.RotateAllResult) RotateAllResponse {
	return RotateAllResponse{
		Results:    result.Results,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		RolledBack: result.RolledBack,
	}
}

// RotationScheduleResponse exposes a pending rotation schedule.
type RotationScheduleResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	RunAt     time.Time `json:"run_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapScheduleToResponse converts a rotation schedule.
func MapScheduleToResponse(schedule *domain.RotationSchedule) RotationScheduleResponse {
	return RotationScheduleResponse{
		ID:        schedule.ID.String(),
		UserID:    schedule.UserID.String(),
		Provider:  schedule.Provider,
		RunAt:     schedule.RunAt,
		CreatedAt: schedule.CreatedAt,
		UpdatedAt: schedule.UpdatedAt,
	}
}
