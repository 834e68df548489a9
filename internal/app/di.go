// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sidevault/sidevault/internal/config"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
	"github.com/sidevault/sidevault/internal/database"
	"github.com/sidevault/sidevault/internal/exchange"
	"github.com/sidevault/sidevault/internal/http"
	"github.com/sidevault/sidevault/internal/metrics"
	"github.com/sidevault/sidevault/internal/ratelimit"
	sessionService "github.com/sidevault/sidevault/internal/session/service"
	sessionUseCase "github.com/sidevault/sidevault/internal/session/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	txManager database.TxManager

	// Crypto
	kmsService     cryptoService.KMSService
	masterKeyChain *cryptoDomain.MasterKeyChain
	aeadManager    cryptoService.AEADManager
	envelope       cryptoService.Envelope

	// Credentials
	credentialRepo    credentialsUseCase.CredentialRepository
	auditRepo         credentialsUseCase.RotationAuditRepository
	scheduleRepo      credentialsUseCase.RotationScheduleRepository
	credentialUseCase credentialsUseCase.CredentialUseCase
	rotationUseCase   credentialsUseCase.RotationUseCase

	// Sessions
	sessionRepo         sessionUseCase.SessionRepository
	registrationToken   sessionService.RegistrationTokenService
	sidecarToken        sessionService.SidecarTokenService
	sandboxDriver       sessionService.SandboxDriver
	sealer              *exchange.Sealer
	sessionUseCase      sessionUseCase.SessionUseCase
	registrationUseCase sessionUseCase.RegistrationUseCase

	// Observability and limits
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	rateLimiter     *ratelimit.Limiter

	// Servers
	httpServer    *http.Server
	opsServer     *http.OpsServer
	metricsServer *http.MetricsServer

	// lifecycleCtx backs long-lived background loops like the rate limiter
	// cleanup; cancelled on Shutdown.
	lifecycleCtx    context.Context
	lifecycleCancel context.CancelFunc

	// Initialization flags and mutex for thread safety
	mu                      sync.Mutex
	loggerInit              sync.Once
	dbInit                  sync.Once
	txManagerInit           sync.Once
	kmsServiceInit          sync.Once
	masterKeyChainInit      sync.Once
	aeadManagerInit         sync.Once
	envelopeInit            sync.Once
	credentialRepoInit      sync.Once
	auditRepoInit           sync.Once
	scheduleRepoInit        sync.Once
	credentialUseCaseInit   sync.Once
	rotationUseCaseInit     sync.Once
	sessionRepoInit         sync.Once
	registrationTokenInit   sync.Once
	sidecarTokenInit        sync.Once
	sandboxDriverInit       sync.Once
	sealerInit              sync.Once
	sessionUseCaseInit      sync.Once
	registrationUseCaseInit sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	rateLimiterInit         sync.Once
	httpServerInit          sync.Once
	opsServerInit           sync.Once
	metricsServerInit       sync.Once
	initErrors              map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:          cfg,
		lifecycleCtx:    ctx,
		lifecycleCancel: cancel,
		initErrors:      make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. No-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// RateLimiter returns the rate limiter, or nil when rate limiting is disabled.
func (c *Container) RateLimiter() *ratelimit.Limiter {
	c.rateLimiterInit.Do(func() {
		if c.config.RateLimitEnabled {
			c.rateLimiter = ratelimit.NewLimiter(
				c.lifecycleCtx,
				c.config.RateLimitRequestsPerSec,
				c.config.RateLimitBurst,
				c.Logger(),
			)
		}
	})
	return c.rateLimiter
}

// HTTPServer returns the API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// OpsServer returns the health/readiness server instance.
func (c *Container) OpsServer() *http.OpsServer {
	c.opsServerInit.Do(func() {
		c.opsServer = http.NewOpsServer(c.config.ServerHost, c.config.OpsPort, c.Logger())
	})
	return c.opsServer
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lifecycleCancel()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.opsServer != nil {
		if err := c.opsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("ops server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.masterKeyChain != nil {
		c.masterKeyChain.Close()
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured JSON logger based on the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the OpenTelemetry/Prometheus provider.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initHTTPServer creates the API server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	handlers, err := c.handlers()
	if err != nil {
		return nil, err
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	return http.NewServer(
		c.config,
		c.Logger(),
		handlers,
		c.RateLimiter(),
		metricsProvider,
	), nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
