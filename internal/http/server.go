// Package http assembles the API, ops, and metrics HTTP servers.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sidevault/sidevault/internal/config"
	credentialsHTTP "github.com/sidevault/sidevault/internal/credentials/http"
	"github.com/sidevault/sidevault/internal/metrics"
	"github.com/sidevault/sidevault/internal/ratelimit"
	sessionHTTP "github.com/sidevault/sidevault/internal/session/http"
)

// Handlers groups the route handlers the API server exposes.
type Handlers struct {
	Credential   *credentialsHTTP.CredentialHandler
	Rotation     *credentialsHTTP.RotationHandler
	Session      *sessionHTTP.SessionHandler
	Registration *sessionHTTP.RegistrationHandler
}

// Server is the main API server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates the API server and registers all routes. limiter and
// metricsProvider may be nil when the corresponding feature is disabled.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	handlers Handlers,
	limiter *ratelimit.Limiter,
	metricsProvider *metrics.Provider,
) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	registerRoutes(router, handlers, limiter)

	return &Server{
		router: router,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// registerRoutes wires the v1 API surface. Mutating endpoints on user and
// session resources are rate limited per (identity, operation).
func registerRoutes(router *gin.Engine, handlers Handlers, limiter *ratelimit.Limiter) {
	byUserID := func(c *gin.Context) string { return c.Param("userID") }
	bySessionID := func(c *gin.Context) string { return c.Param("sessionID") }

	limit := func(operation string, identityFn func(*gin.Context) string) gin.HandlerFunc {
		if limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return limiter.Middleware(operation, identityFn)
	}

	v1 := router.Group("/v1")

	users := v1.Group("/users/:userID")
	{
		users.PUT("/credentials/:provider",
			limit("credential_store", byUserID), handlers.Credential.StoreHandler)
		users.GET("/credentials", handlers.Credential.ListHandler)
		users.DELETE("/credentials/:provider",
			limit("credential_delete", byUserID), handlers.Credential.DeleteHandler)

		users.POST("/credentials/rotate",
			limit("rotation", byUserID), handlers.Rotation.RotateAllHandler)
		users.POST("/credentials/:provider/rotate",
			limit("rotation", byUserID), handlers.Rotation.RotateHandler)
		users.POST("/credentials/:provider/rotation-schedule",
			limit("rotation", byUserID), handlers.Rotation.ScheduleHandler)
		users.GET("/rotation-audit", handlers.Rotation.AuditHandler)

		users.POST("/sessions",
			limit("session_create", byUserID), handlers.Session.CreateHandler)
		users.GET("/sessions", handlers.Session.ListHandler)
	}

	sessions := v1.Group("/sessions/:sessionID")
	{
		sessions.GET("", handlers.Session.GetHandler)
		sessions.POST("/stop",
			limit("session_transition", bySessionID), handlers.Session.StopHandler)
		sessions.POST("/idle",
			limit("session_transition", bySessionID), handlers.Session.IdleHandler)
		sessions.POST("/resume",
			limit("session_transition", bySessionID), handlers.Session.ResumeHandler)

		sessions.POST("/register",
			limit("sidecar_register", bySessionID), handlers.Registration.RegisterHandler)
		sessions.POST("/keys/refresh",
			limit("keys_refresh", bySessionID), handlers.Registration.RefreshKeysHandler)
	}
}

// GetHandler returns the router for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
