package streetnetwork

import (
	"context"
	"slices"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/provider"
)

// Manager selects street-network backends from a registry.
type Manager struct {
	registry *provider.Registry[Service]
}

// NewManager creates a manager over registry.
func NewManager(registry *provider.Registry[Service]) *Manager {
	return &Manager{registry: registry}
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *provider.Registry[Service] { return m.registry }

// ForMode returns the first backend serving mode, dynamic backends first.
func (m *Manager) ForMode(ctx context.Context, mode Mode) (Service, error) {
	for _, svc := range m.registry.Providers(ctx) {
		if slices.Contains(svc.Modes(), mode) {
			return svc, nil
		}
	}
	return nil, errors.NotFound("street network backend", string(mode))
}

// Get returns a backend by id after a refresh check.
func (m *Manager) Get(ctx context.Context, id string) (Service, error) {
	for _, svc := range m.registry.Providers(ctx) {
		if svc.ID() == id {
			return svc, nil
		}
	}
	return nil, errors.NotFound("street network backend", id)
}

// Status reports every backend.
func (m *Manager) Status() []provider.Status { return m.registry.Status() }
