// Package http provides HTTP handlers for session lifecycle and the sidecar
// registration handshake.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/httputil"
	"github.com/sidevault/sidevault/internal/session/http/dto"
	sessionUseCase "github.com/sidevault/sidevault/internal/session/usecase"
)

// SessionHandler handles HTTP requests for session lifecycle management.
type SessionHandler struct {
	sessionUseCase sessionUseCase.SessionUseCase
	logger         *slog.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(useCase sessionUseCase.SessionUseCase, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: useCase,
		logger:         logger,
	}
}

func parseSessionID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id: %w", err)
	}
	return id, nil
}

// CreateHandler provisions a session for a user.
// POST /v1/users/:userID/sessions
// Returns 201 with the session and its one-time registration token.
func (h *SessionHandler) CreateHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid user id: %w", err), h.logger)
		return
	}

	output, err := h.sessionUseCase.Create(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateSessionResponse{
		Session:           dto.MapSessionToResponse(output.Session),
		RegistrationToken: output.RegistrationToken,
	})
}

// GetHandler returns session metadata.
// GET /v1/sessions/:sessionID
func (h *SessionHandler) GetHandler(c *gin.Context) {
	id, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}

// ListHandler returns a user's sessions.
// GET /v1/users/:userID/sessions
func (h *SessionHandler) ListHandler(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid user id: %w", err), h.logger)
		return
	}

	sessions, err := h.sessionUseCase.ListByUser(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": dto.MapSessionsToResponse(sessions)})
}

// StopHandler stops a session.
// POST /v1/sessions/:sessionID/stop
func (h *SessionHandler) StopHandler(c *gin.Context) {
	h.transition(c, h.sessionUseCase.Stop)
}

// IdleHandler marks an active session idle.
// POST /v1/sessions/:sessionID/idle
func (h *SessionHandler) IdleHandler(c *gin.Context) {
	h.transition(c, h.sessionUseCase.Idle)
}

// ResumeHandler resumes an idle session.
// POST /v1/sessions/:sessionID/resume
func (h *SessionHandler) ResumeHandler(c *gin.Context) {
	h.transition(c, h.sessionUseCase.Resume)
}

func (h *SessionHandler) transition(c *gin.Context, op func(context.Context, uuid.UUID) error) {
	id, err := parseSessionID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := op(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	session, err := h.sessionUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSessionToResponse(session))
}
