package bss

import (
	"context"

	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/provider"
)

// Manager fills station POIs with stands from the registered providers.
type Manager struct {
	registry *provider.Registry[Provider]
	log      *logger.Logger
}

// NewManager creates a manager over registry.
func NewManager(registry *provider.Registry[Provider], log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Get("bss.manager")
	}
	return &Manager{registry: registry, log: log}
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *provider.Registry[Provider] { return m.registry }

// Providers returns the providers in priority order.
func (m *Manager) Providers(ctx context.Context) []Provider {
	return m.registry.Providers(ctx)
}

// Status reports every provider.
func (m *Manager) Status() []provider.Status { return m.registry.Status() }

// HandlePOI sets poi.Stands when poi is a bike-share station handled by a
// provider, and returns that provider. A failing provider yields unavailable
// stands. Other POIs are left untouched and nil is returned.
func (m *Manager) HandlePOI(ctx context.Context, poi *POI) Provider {
	if !poi.IsBikeShareStation() {
		return nil
	}
	p := m.find(m.registry.Providers(ctx), poi)
	if p == nil {
		return nil
	}
	m.annotate(ctx, p, poi)
	return p
}

// HandlePlaces annotates every POI place and returns the distinct providers
// that answered, in first-use order.
func (m *Manager) HandlePlaces(ctx context.Context, places []Place) []Provider {
	providers := m.registry.Providers(ctx)
	var used []Provider
	seen := make(map[string]struct{})
	for i := range places {
		poi := places[i].POI
		if places[i].EmbeddedType != "poi" || !poi.IsBikeShareStation() {
			continue
		}
		p := m.find(providers, poi)
		if p == nil {
			continue
		}
		m.annotate(ctx, p, poi)
		if _, ok := seen[p.ID()]; !ok {
			seen[p.ID()] = struct{}{}
			used = append(used, p)
		}
	}
	return used
}

func (m *Manager) find(providers []Provider, poi *POI) Provider {
	for _, p := range providers {
		if p.Handles(poi) {
			return p
		}
	}
	return nil
}

func (m *Manager) annotate(ctx context.Context, p Provider, poi *POI) {
	stands, err := p.Stands(ctx, poi)
	if err != nil {
		m.log.Warn("stands unavailable", logger.MergeWithError(logger.Fields(
			logger.FieldProviderID, p.ID(), "poi_id", poi.ID), err))
		stands = UnavailableStands()
	}
	poi.Stands = stands
}
