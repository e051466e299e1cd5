package source

import (
	"context"
	"sync"

	"github.com/kbukum/mobilitykit/provider"
)

// Memory is an in-memory provider.Source.
type Memory struct {
	mu   sync.RWMutex
	defs []provider.Definition
	err  error
}

// NewMemory creates a Memory source holding defs.
func NewMemory(defs ...provider.Definition) *Memory {
	return &Memory{defs: defs}
}

// Set replaces the definitions and clears any injected error.
func (m *Memory) Set(defs ...provider.Definition) {
	m.mu.Lock()
	m.defs = append([]provider.Definition(nil), defs...)
	m.err = nil
	m.mu.Unlock()
}

// Fail makes ListProviders return err until the next Set.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// ListProviders returns a copy of the current definitions.
func (m *Memory) ListProviders(context.Context) ([]provider.Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]provider.Definition{}, m.defs...), nil
}
