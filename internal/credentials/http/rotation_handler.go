package http

import (
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

// RotationHandler handles HTTP requests for credential rotation and its audit trail.
type RotationHandler struct {
	rotationUseCase credentialsUseCase.RotationUseCase
	logger          *slog.Logger
}

// NewRotationHandler creates a rotation handler.
func NewRotationHandler(
	rotationUseCase credentialsUseCase.RotationUseCase,
	logger *slog.Logger,
) *RotationHandler {
	return &RotationHandler{
		rotationUseCase: rotationUseCase,
		logger:          logger,
	}
}

// RotateHandler rotates a single credential.
// POST /v1/users/:userID/credentials/:provider/rotate
func (h *RotationHandler) RotateHandler(c *gin.Context) {
	userID, provider, err := parseUserAndProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// The body is optional; absent means rotate to current+1.
	var req dto.RotateCredentialRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	entry, err := h.rotationUseCase.RotateOne(c.Request.Context(), userID, provider, req.TargetVersion)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEntryToResponse(entry))
}

// RotateAllHandler rotates a user's credentials as a batch.
// POST /v1/users/:userID/credentials/rotate
// Returns 200 with a per-provider report even under partial failure.
func (h *RotationHandler) RotateAllHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid user id: %w", err), h.logger)
		return
	}

	var req dto.RotateAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}
	for _, provider := range req.Providers {
		if err := validation.Validate(provider, customValidation.Provider); err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid provider %q: %w", provider, err), h.logger)
			return
		}
	}

	result, err := h.rotationUseCase.RotateAll(c.Request.Context(), credentialsUseCase.RotateAllInput{
		UserID:            userID,
		Providers:         req.Providers,
		RollbackOnFailure: req.RollbackOnFailure,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotateAllResultToResponse(result))
}

// ScheduleHandler schedules a rotation for a future instant.
// POST /v1/users/:userID/credentials/:provider/rotation-schedule
func (h *RotationHandler) ScheduleHandler(c *gin.Context) {
	userID, provider, err := parseUserAndProvider(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ScheduleRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	schedule, err := h.rotationUseCase.ScheduleRotation(c.Request.Context(), userID, provider, req.RunAt)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapScheduleToResponse(schedule))
}

// AuditHandler lists rotation audit entries newest-first.
// GET /v1/users/:userID/rotation-audit?provider=openai&offset=0&limit=50
func (h *RotationHandler) AuditHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid user id: %w", err), h.logger)
		return
	}

	provider := c.Query("provider")
	if provider != "" {
		if err := validation.Validate(provider, customValidation.Provider); err != nil {
			httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid provider: %w", err), h.logger)
			return
		}
	}

	pagination := httputil.ParsePagination(c)
	entries, err := h.rotationUseCase.ListAudit(
		c.Request.Context(), userID, provider,
		pagination.Offset, pagination.Limit,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": dto.MapAuditEntriesToResponse(entries)})
}
