package provider

import (
	"context"
	"time"
)

// Provider is the capability every pluggable backend exposes to the registry.
// Families add their domain operation on top of it.
type Provider interface {
	// ID returns the provider's unique identifier within its family.
	ID() string
	// Status describes the provider for operational reporting.
	Status() Status
}

// Status describes a provider instance.
type Status struct {
	ID    string   `json:"id"`
	Kind  string   `json:"kind"`
	Modes []string `json:"modes,omitempty"`
}

// Definition is one provider as enumerated by a Source. Definitions are
// read-only once returned.
type Definition struct {
	ID             string         `json:"id" yaml:"id" validate:"required"`
	Implementation string         `json:"implementation" yaml:"implementation" validate:"required"`
	Arguments      map[string]any `json:"arguments,omitempty" yaml:"arguments"`
	LastUpdate     time.Time      `json:"last_update" yaml:"last_update"`
}

// Source enumerates the dynamically configured providers of one family.
// An empty result with a nil error means every provider is disabled.
type Source interface {
	ListProviders(ctx context.Context) ([]Definition, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Definition, error)

// ListProviders calls f.
func (f SourceFunc) ListProviders(ctx context.Context) ([]Definition, error) {
	return f(ctx)
}
