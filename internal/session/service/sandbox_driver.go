package service

import (
	"context"

	"github.com/google/uuid"
)

// staticSandboxDriver resolves every session to the same configured port.
// Suitable for single-host deployments where sandboxes are network-namespaced.
type staticSandboxDriver struct {
	opencodePort int
}

// NewStaticSandboxDriver creates a SandboxDriver returning a fixed port.
func NewStaticSandboxDriver(opencodePort int) SandboxDriver {
	return &staticSandboxDriver{opencodePort: opencodePort}
}

func (s *staticSandboxDriver) OpencodePort(_ context.Context, _ uuid.UUID) (int, error) {
	return s.opencodePort, nil
}
