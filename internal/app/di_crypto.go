package app

import (
	"fmt"

	cryptoDomain "github.com/sidevault/sidevault/internal/crypto/domain"
	cryptoService "github.com/sidevault/sidevault/internal/crypto/service"
)

// KMSService returns the KMS service used to open master-key keepers.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// MasterKeyChain returns the loaded master key chain. When a KMS provider is
// configured the keys in MASTER_KEYS are treated as KMS-wrapped ciphertexts
// and unwrapped through the keeper; otherwise they are used directly.
func (c *Container) MasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var err error
	c.masterKeyChainInit.Do(func() {
		c.masterKeyChain, err = c.initMasterKeyChain()
		if err != nil {
			c.initErrors["masterKeyChain"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["masterKeyChain"]; exists {
		return nil, storedErr
	}
	return c.masterKeyChain, nil
}

// AEADManager returns the AEAD cipher factory.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadManagerInit.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// Envelope returns the envelope encryption engine.
func (c *Container) Envelope() (cryptoService.Envelope, error) {
	var err error
	c.envelopeInit.Do(func() {
		c.envelope, err = c.initEnvelope()
		if err != nil {
			c.initErrors["envelope"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelope"]; exists {
		return nil, storedErr
	}
	return c.envelope, nil
}

func (c *Container) initMasterKeyChain() (*cryptoDomain.MasterKeyChain, error) {
	var keeper cryptoDomain.KMSKeeper
	if c.config.KMSProvider != "" && c.config.KMSKeyURI != "" {
		var err error
		keeper, err = c.KMSService().OpenKeeper(c.lifecycleCtx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
		}
	}

	chain, err := cryptoDomain.LoadMasterKeyChainFromEnv(c.lifecycleCtx, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load master key chain: %w", err)
	}
	return chain, nil
}

func (c *Container) initEnvelope() (cryptoService.Envelope, error) {
	chain, err := c.MasterKeyChain()
	if err != nil {
		return nil, err
	}
	return cryptoService.NewEnvelopeService(chain, c.AEADManager(), cryptoDomain.AESGCM), nil
}
