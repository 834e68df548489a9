// Package dto provides data transfer objects for the session endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/sidevault/sidevault/internal/validation"
)

// RegisterSidecarRequest is the sidecar's registration handshake body.
// The session id comes from the URL.
type RegisterSidecarRequest struct {
	RegistrationToken string `json:"registrationToken" binding:"required"`
	PublicKey         string `json:"publicKey" binding:"required"`
	KeyID             string `json:"keyId" binding:"required"`
}

// Validate checks the registration request. Key formats are validated before
// any database lookup happens.
func (r *RegisterSidecarRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RegistrationToken, validation.Required, customValidation.NotBlank),
		validation.Field(&r.PublicKey, validation.Required, customValidation.PublicKey),
		validation.Field(&r.KeyID, validation.Required, customValidation.KeyID),
	)
}

// RefreshProviderKeysRequest asks for re-delivery of provider credentials.
// Providers optionally narrows the delivery; empty means every credential.
type RefreshProviderKeysRequest struct {
	SidecarAuthToken string   `json:"sidecarAuthToken" binding:"required"`
	PublicKey        string   `json:"publicKey" binding:"required"`
	KeyID            string   `json:"keyId" binding:"required"`
	Providers        []string `json:"providers"`
}

// Validate checks the refresh request.
func (r *RefreshProviderKeysRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SidecarAuthToken, validation.Required, customValidation.NotBlank),
		validation.Field(&r.PublicKey, validation.Required, customValidation.PublicKey),
		validation.Field(&r.KeyID, validation.Required, customValidation.KeyID),
		validation.Field(&r.Providers, validation.Each(customValidation.Provider)),
	)
}
