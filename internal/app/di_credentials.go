package app

import (
	"fmt"

	"github.com/sidevault/sidevault/internal/credentials/repository"
	credentialsUseCase "github.com/sidevault/sidevault/internal/credentials/usecase"
)

// CredentialRepository returns the credential repository for the configured
// database driver.
func (c *Container) CredentialRepository() (credentialsUseCase.CredentialRepository, error) {
	var err error
	c.credentialRepoInit.Do(func() {
		c.credentialRepo, err = c.initCredentialRepository()
		if err != nil {
			c.initErrors["credentialRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["credentialRepo"]; exists {
		return nil, storedErr
	}
	return c.credentialRepo, nil
}

// RotationAuditRepository returns the rotation audit repository.
func (c *Container) RotationAuditRepository() (credentialsUseCase.RotationAuditRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initRotationAuditRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// RotationScheduleRepository returns the rotation schedule repository.
func (c *Container) RotationScheduleRepository() (credentialsUseCase.RotationScheduleRepository, error) {
	var err error
	c.scheduleRepoInit.Do(func() {
		c.scheduleRepo, err = c.initRotationScheduleRepository()
		if err != nil {
			c.initErrors["scheduleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["scheduleRepo"]; exists {
		return nil, storedErr
	}
	return c.scheduleRepo, nil
}

// CredentialUseCase returns the credential use case, wrapped with business
// metrics when metrics are enabled.
func (c *Container) CredentialUseCase() (credentialsUseCase.CredentialUseCase, error) {
	var err error
	c.credentialUseCaseInit.Do(func() {
		c.credentialUseCase, err = c.initCredentialUseCase()
		if err != nil {
			c.initErrors["credentialUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["credentialUseCase"]; exists {
		return nil, storedErr
	}
	return c.credentialUseCase, nil
}

// RotationUseCase returns the rotation use case, wrapped with business
// metrics when metrics are enabled.
func (c *Container) RotationUseCase() (credentialsUseCase.RotationUseCase, error) {
	var err error
	c.rotationUseCaseInit.Do(func() {
		c.rotationUseCase, err = c.initRotationUseCase()
		if err != nil {
			c.initErrors["rotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.rotationUseCase, nil
}

func (c *Container) initCredentialRepository() (credentialsUseCase.CredentialRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	switch c.config.DBDriver {
	case "postgres":
		return repository.NewPostgreSQLCredentialRepository(db), nil
	case "mysql":
		return repository.NewMySQLCredentialRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRotationAuditRepository() (credentialsUseCase.RotationAuditRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	switch c.config.DBDriver {
	case "postgres":
		return repository.NewPostgreSQLRotationAuditRepository(db), nil
	case "mysql":
		return repository.NewMySQLRotationAuditRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRotationScheduleRepository() (credentialsUseCase.RotationScheduleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}

	switch c.config.DBDriver {
	case "postgres":
		return repository.NewPostgreSQLRotationScheduleRepository(db), nil
	case "mysql":
		return repository.NewMySQLRotationScheduleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initCredentialUseCase() (credentialsUseCase.CredentialUseCase, error) {
	credentialRepo, err := c.CredentialRepository()
	if err != nil {
		return nil, err
	}
	envelope, err := c.Envelope()
	if err != nil {
		return nil, err
	}

	useCase := credentialsUseCase.NewCredentialUseCase(credentialRepo, envelope)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, err
		}
		useCase = credentialsUseCase.NewCredentialUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}

func (c *Container) initRotationUseCase() (credentialsUseCase.RotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}
	credentialRepo, err := c.CredentialRepository()
	if err != nil {
		return nil, err
	}
	auditRepo, err := c.RotationAuditRepository()
	if err != nil {
		return nil, err
	}
	scheduleRepo, err := c.RotationScheduleRepository()
	if err != nil {
		return nil, err
	}
	envelope, err := c.Envelope()
	if err != nil {
		return nil, err
	}

	useCase := credentialsUseCase.NewRotationUseCase(
		txManager,
		credentialRepo,
		auditRepo,
		scheduleRepo,
		envelope,
		c.config.RotationConcurrency,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, err
		}
		useCase = credentialsUseCase.NewRotationUseCaseWithMetrics(useCase, businessMetrics)
	}

	return useCase, nil
}
