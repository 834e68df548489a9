package dto

import (
	"encoding/base64"
	"time"

	"github.com/sidevault/sidevault/internal/exchange"
	"github.com/sidevault/sidevault/internal/session/domain"
	"github.com/sidevault/sidevault/internal/session/usecase"
)

// SessionResponse exposes session metadata. Token hashes and key material
// stay server-side.
type SessionResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Status       string     `json:"status"`
	OpencodePort int        `json:"opencode_port,omitempty"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MapSessionToResponse converts a session to its metadata response.
func MapSessionToResponse(session *domain.Session) SessionResponse {
	return SessionResponse{
		ID:           session.ID.String(),
		UserID:       session.UserID.String(),
		Status:       string(session.Status),
		OpencodePort: session.OpencodePort,
		RegisteredAt: session.RegisteredAt,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
}

// MapSessionsToResponse converts a session list.
func MapSessionsToResponse(sessions []*domain.Session) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, MapSessionToResponse(session))
	}
	return responses
}

// CreateSessionResponse carries the new session and its one-time registration token.
type CreateSessionResponse struct {
	Session           SessionResponse `json:"session"`
	RegistrationToken string          `json:"registration_token"`
}

// SealedPayloadResponse is the wire form of a sealed payload; binary fields
// are base64-encoded.
type SealedPayloadResponse struct {
	Ciphertext     string `json:"ciphertext"`
	Nonce          string `json:"nonce"`
	Tag            string `json:"tag"`
	RecipientKeyID string `json:"recipient_key_id"`
}

// MapSealedPayloadToResponse converts a sealed payload for transport.
func MapSealedPayloadToResponse(payload *exchange.SealedPayload) SealedPayloadResponse {
	return SealedPayloadResponse{
		Ciphertext:     base64.StdEncoding.EncodeToString(payload.Ciphertext),
		Nonce:          base64.StdEncoding.EncodeToString(payload.Nonce),
		Tag:            base64.StdEncoding.EncodeToString(payload.Tag),
		RecipientKeyID: payload.RecipientKeyID,
	}
}

// RegisterSidecarResponse is the registration handshake result.
type RegisterSidecarResponse struct {
	Success               bool                  `json:"success"`
	SidecarAuthToken      string                `json:"sidecar_auth_token"`
	OrchestratorPublicKey string                `json:"orchestrator_public_key"`
	OrchestratorKeyID     string                `json:"orchestrator_key_id"`
	OpencodePort          int                   `json:"opencode_port"`
	CredentialCount       int                   `json:"credential_count"`
	EncryptedProviderKeys SealedPayloadResponse `json:"encrypted_provider_keys"`
}

// MapRegistrationToResponse converts a registration output.
func MapRegistrationToResponse(output *usecase.RegisterSidecarOutput) RegisterSidecarResponse {
	return RegisterSidecarResponse{
		Success:               true,
		SidecarAuthToken:      output.SidecarAuthToken,
		OrchestratorPublicKey: output.OrchestratorPublicKey,
		OrchestratorKeyID:     output.OrchestratorKeyID,
		OpencodePort:          output.OpencodePort,
		CredentialCount:       output.CredentialCount,
		EncryptedProviderKeys: MapSealedPayloadToResponse(output.EncryptedProviderKeys),
	}
}

// RefreshProviderKeysResponse is the key re-delivery result.
type RefreshProviderKeysResponse struct {
	Success               bool                  `json:"success"`
	OrchestratorPublicKey string                `json:"orchestrator_public_key"`
	OrchestratorKeyID     string                `json:"orchestrator_key_id"`
	CredentialCount       int                   `json:"credential_count"`
	EncryptedProviderKeys SealedPayloadResponse `json:"encrypted_provider_keys"`
	DeliveredAt           time.Time             `json:"delivered_at"`
}

// MapRefreshToResponse converts a refresh output.
func MapRefreshToResponse(output *usecase.RefreshProviderKeysOutput) RefreshProviderKeysResponse {
	return RefreshProviderKeysResponse{
		Success:               true,
		OrchestratorPublicKey: output.OrchestratorPublicKey,
		OrchestratorKeyID:     output.OrchestratorKeyID,
		CredentialCount:       output.CredentialCount,
		EncryptedProviderKeys: MapSealedPayloadToResponse(output.EncryptedProviderKeys),
		DeliveredAt:           output.DeliveredAt,
	}
}
