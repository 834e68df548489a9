// Package http provides HTTP handlers for credential storage and rotation.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/sidevault/sidevault/internal/credentials/http/dto"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
	"github.com/sidevault/sidevault/internal/httputil"
	customValidation "github.com/sidevault/sidevault/internal/validation"
)

// CredentialHandler handles HTTP requests for credential management.
type CredentialHandler struct {
	credentialUseCase credentialsUseCase.CredentialUseCase
	logger            *slog.Logger
}

// NewCredentialHandler creates a credential handler.
func NewCredentialHandler(
	credentialUseCase credentialsUseCase.CredentialUseCase,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: credentialUseCase,
		logger:            logger,
	}
}

// parseUserAndProvider extracts and validates the common URL parameters.
func parseUserAndProvider(c *gin.Context) (uuid.UUID, string, error) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid user id: %w", err)
	}

	provider := c.Param("provider")
	if err := validation.Validate(provider, validation.Required, customValidation.Provider); err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid provider: %w", err)
	}

	return userID, provider, nil
}

// StoreHandler creates or replaces a provider credential.
// PUT /v1/users/:userID/credentials/:provider
// Returns 201 Created with credential metadata; the plaintext never echoes back.
func (h *CredentialHandler) StoreHandler(c *gin.Context) {
	userID, provider, err := parseUserAndProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.StoreCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}

	credential, err := h.credentialUseCase.Store(c.Request.Context(), userID, provider, value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapCredentialToResponse(credential))
}

// ListHandler returns credential metadata for a user.
// GET /v1/users/:userID/credentials
func (h *CredentialHandler) ListHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid user id: %w", err), h.logger)
		return
	}

	credentials, err := h.credentialUseCase.List(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credentials": dto.MapCredentialsToResponse(credentials)})
}

// DeleteHandler removes a provider credential.
// DELETE /v1/users/:userID/credentials/:provider
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	userID, provider, err := parseUserAndProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.credentialUseCase.Delete(c.Request.Context(), userID, provider); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
