package app

import (
	"fmt"

	credentialsHTTP "github.com/sidevault/sidevault/internal/credentials/http"
	"github.com/sidevault/sidevault/internal/exchange"
	"github.com/sidevault/sidevault/internal/http"
	sessionHTTP "github.com/sidevault/sidevault/internal/session/http"
	"github.com/sidevault/sidevault/internal/session/repository"
	sessionService "github.com/sidevault/sidevault/internal/session/service"
	sessionUseCase "github.com/sidevault/sidevault/internal/session/usecase"
)

// SessionRepository returns the session repository for the configured
// database driver.
func (c *Container) SessionRepository() (sessionUseCase.SessionRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		c.sessionRepo, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

// RegistrationTokenService returns the registration token service.
func (c *Container) RegistrationTokenService() (sessionService.RegistrationTokenService, error) {
	var err error
	c.registrationTokenInit.Do(func() {
		c.registrationToken, err = sessionService.NewRegistrationTokenService()
		if err != nil {
			c.initErrors["registrationToken"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationToken"]; exists {
		return nil, storedErr
	}
	return c.registrationToken, nil
}

// SidecarTokenService returns the sidecar token service.
func (c *Container) SidecarTokenService() sessionService.SidecarTokenService {
	c.sidecarTokenInit.Do(func() {
		c.sidecarToken = sessionService.NewSidecarTokenService(c.config.SidecarTokenTTL)
	})
	return c.sidecarToken
}

// SandboxDriver returns the sandbox driver.
func (c *Container) SandboxDriver() sessionService.SandboxDriver {
	c.sandboxDriverInit.Do(func() {
		c.sandboxDriver = sessionService.NewStaticSandboxDriver(c.config.SandboxOpencodePort)
	})
	return c.sandboxDriver
}

// Sealer returns the sealed payload builder.
func (c *Container) Sealer() *exchange.Sealer {
	c.sealerInit.Do(func() {
		c.sealer = exchange.NewSealer(c.config.SealedPayloadFreshness)
	})
	return c.sealer
}

// SessionUseCase returns the session lifecycle use case, wrapped with
// business metrics when metrics are enabled.
func (c *Container) SessionUseCase() (sessionUseCase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// RegistrationUseCase returns the sidecar registration use case, wrapped with
// business metrics when metrics are enabled.
func (c *Container) RegistrationUseCase() (sessionUseCase.RegistrationUseCase, error) {
	var err error
	c.registrationUseCaseInit.Do(func() {
		c.registrationUseCase, err = c.initRegistrationUseCase()
		if err != nil {
			c.initErrors["registrationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["registrationUseCase"]; exists {
		return nil, storedErr
	}
	return c.registrationUseCase, nil
}

func (c *Container) initSessionRepository() (sessionUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	switch c.config.DBDriver {
	case "postgres":
		return repository.NewPostgreSQLSessionRepository(db), nil
	case "mysql":
		return repository.NewMySQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initSessionUseCase() (sessionUseCase.SessionUseCase, error) {
	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, err
	}
	registrationToken, err := c.RegistrationTokenService()
	if err != nil {
		return nil, err
	}

	useCase := sessionUseCase.NewSessionUseCase(sessionRepo, registrationToken)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, err
		}
		useCase = sessionUseCase.NewSessionUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

func (c *Container) initRegistrationUseCase() (sessionUseCase.RegistrationUseCase, error) {
	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, err
	}
	credentials, err := c.CredentialUseCase()
	if err != nil {
		return nil, err
	}
	registrationToken, err := c.RegistrationTokenService()
	if err != nil {
		return nil, err
	}

	useCase := sessionUseCase.NewRegistrationUseCase(
		sessionRepo,
		credentials,
		registrationToken,
		c.SidecarTokenService(),
		c.SandboxDriver(),
		c.Sealer(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, err
		}
		useCase = sessionUseCase.NewRegistrationUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

// handlers assembles the HTTP handlers for the API server.
func (c *Container) handlers() (http.Handlers, error) {
	credentialUseCase, err := c.CredentialUseCase()
	if err != nil {
		return http.Handlers{}, err
	}
	rotationUseCase, err := c.RotationUseCase()
	if err != nil {
		return http.Handlers{}, err
	}
	sessions, err := c.SessionUseCase()
	if err != nil {
		return http.Handlers{}, err
	}
	registrations, err := c.RegistrationUseCase()
	if err != nil {
		return http.Handlers{}, err
	}

	logger := c.Logger()
	return http.Handlers{
		Credential:   credentialsHTTP.NewCredentialHandler(credentialUseCase, logger),
		Rotation:     credentialsHTTP.NewRotationHandler(rotationUseCase, logger),
		Session:      sessionHTTP.NewSessionHandler(sessions, logger),
		Registration: sessionHTTP.NewRegistrationHandler(registrations, logger),
	}, nil
}
