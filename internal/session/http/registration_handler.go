package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sidevault/sidevault/internal/httputil"
	"github.com/sidevault/sidevault/internal/session/http/dto"
	sessionUseCase "github.com/sidevault/sidevault/internal/session/usecase"
	customValidation "github.com/sidevault/sidevault/internal/validation"
)

// RegistrationHandler handles the sidecar handshake endpoints.
type RegistrationHandler struct {
	registrationUseCase sessionUseCase.RegistrationUseCase
	logger              *slog.Logger
}

// NewRegistrationHandler creates a registration handler.
func NewRegistrationHandler(
	useCase sessionUseCase.RegistrationUseCase,
	logger *slog.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		registrationUseCase: useCase,
		logger:              logger,
	}
}

// RegisterHandler performs the one-shot sidecar registration handshake.
// POST /v1/sessions/:sessionID/register
// Returns 200 with the sidecar auth token, the orchestrator's ephemeral public
// key, and the user's provider credentials sealed to the sidecar's key.
func (h *RegistrationHandler) RegisterHandler(c *gin.Context) {
	id, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RegisterSidecarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.registrationUseCase.RegisterSidecar(c.Request.Context(), &sessionUseCase.RegisterSidecarInput{
		SessionID:         id,
		RegistrationToken: req.RegistrationToken,
		PublicKey:         req.PublicKey,
		KeyID:             req.KeyID,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRegistrationToResponse(output))
}

// RefreshKeysHandler re-delivers provider credentials to a registered sidecar.
// POST /v1/sessions/:sessionID/keys/refresh
func (h *RegistrationHandler) RefreshKeysHandler(c *gin.Context) {
	id, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RefreshProviderKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.registrationUseCase.RefreshProviderKeys(c.Request.Context(), &sessionUseCase.RefreshProviderKeysInput{
		SessionID:        id,
		SidecarAuthToken: req.SidecarAuthToken,
		PublicKey:        req.PublicKey,
		KeyID:            req.KeyID,
		Providers:        req.Providers,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRefreshToResponse(output))
}
