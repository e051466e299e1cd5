package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/mobilitykit/errors"
	"github.com/kbukum/mobilitykit/logger"
	"github.com/kbukum/mobilitykit/observability"
	"github.com/kbukum/mobilitykit/validation"
)

// DefaultUpdateInterval is the refresh interval used when none is configured.
const DefaultUpdateInterval = 60 * time.Second

// RemoveHook is called for every provider dropped from the registry because
// its definition disappeared from the source.
type RemoveHook[T Provider] func(id string, removed T)

// Registry holds the dynamically configured providers of one family, refreshed
// from a Source, plus the static (legacy) providers built at startup.
//
// The id->instance and id->last-update maps are always mutated together under
// mu. Dynamic providers come first in the merged view, sorted by id; legacy
// providers follow in declaration order.
type Registry[T Provider] struct {
	family   string
	factory  *Factory[T]
	source   Source
	poller   *Poller
	interval time.Duration
	now      func() time.Time
	legacy   []T
	log      *logger.Logger
	metrics  *observability.Metrics
	onRemove []RemoveHook[T]

	mu         sync.RWMutex
	entries    map[string]T
	lastUpdate map[string]time.Time
}

// Option configures a Registry.
type Option[T Provider] func(*Registry[T])

// WithSource sets the source of dynamic providers. Without a source the
// registry only serves its legacy providers and never refreshes.
func WithSource[T Provider](src Source) Option[T] {
	return func(r *Registry[T]) { r.source = src }
}

// WithInterval sets the minimum delay between two refresh attempts.
func WithInterval[T Provider](d time.Duration) Option[T] {
	return func(r *Registry[T]) { r.interval = d }
}

// WithClock injects the time source used by the poller.
func WithClock[T Provider](now func() time.Time) Option[T] {
	return func(r *Registry[T]) { r.now = now }
}

// WithLegacy sets the static providers appended after dynamic ones.
func WithLegacy[T Provider](legacy []T) Option[T] {
	return func(r *Registry[T]) { r.legacy = append([]T(nil), legacy...) }
}

// WithLogger sets the registry logger.
func WithLogger[T Provider](l *logger.Logger) Option[T] {
	return func(r *Registry[T]) { r.log = l }
}

// WithMetrics records refresh outcomes on m.
func WithMetrics[T Provider](m *observability.Metrics) Option[T] {
	return func(r *Registry[T]) { r.metrics = m }
}

// WithOnRemove adds a hook observing provider deletions.
func WithOnRemove[T Provider](hook RemoveHook[T]) Option[T] {
	return func(r *Registry[T]) { r.onRemove = append(r.onRemove, hook) }
}

// NewRegistry creates a registry for family backed by factory.
func NewRegistry[T Provider](family string, factory *Factory[T], opts ...Option[T]) *Registry[T] {
	r := &Registry[T]{
		family:     family,
		factory:    factory,
		interval:   DefaultUpdateInterval,
		entries:    make(map[string]T),
		lastUpdate: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("provider.registry")
	}
	r.log = r.log.WithFields(logger.Fields(logger.FieldFamily, family))
	r.poller = NewPoller(r.interval, r.now)
	return r
}

// Family returns the provider family name.
func (r *Registry[T]) Family() string { return r.family }

// Providers refreshes the registry if due and returns the merged view.
func (r *Registry[T]) Providers(ctx context.Context) []T {
	r.Refresh(ctx)
	return r.Merged()
}

// Merged returns dynamic providers sorted by id followed by legacy providers,
// without refreshing.
func (r *Registry[T]) Merged() []T {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids)+len(r.legacy))
	for _, id := range ids {
		out = append(out, r.entries[id])
	}
	r.mu.RUnlock()
	return append(out, r.legacy...)
}

// Get returns the dynamic provider registered under id.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return p, ok
}

// LastUpdate returns the source timestamp recorded for a dynamic provider.
func (r *Registry[T]) LastUpdate(id string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.lastUpdate[id]
	return t, ok
}

// Status returns the status of every provider in merged order.
func (r *Registry[T]) Status() []Status {
	merged := r.Merged()
	out := make([]Status, 0, len(merged))
	for _, p := range merged {
		out = append(out, p.Status())
	}
	return out
}

// Invalidate makes the next read refresh regardless of the interval.
func (r *Registry[T]) Invalidate() {
	r.poller.Reset()
}

// Refresh runs one refresh cycle if the poller allows it and reports whether
// a cycle ran.
func (r *Registry[T]) Refresh(ctx context.Context) bool {
	if !r.poller.Claim(r.source != nil) {
		return false
	}
	r.refresh(ctx)
	return true
}

// UpdateProvider builds def and installs it under def.ID, replacing any
// current instance whatever its timestamp. The previous slot is left untouched
// on error.
func (r *Registry[T]) UpdateProvider(ctx context.Context, def Definition) error {
	return r.install(ctx, def, false)
}

// install builds def and swaps it in. With onlyNewer the timestamp is checked
// again under the lock, and an instance overtaken during construction by a
// newer one is closed instead of installed.
func (r *Registry[T]) install(ctx context.Context, def Definition, onlyNewer bool) error {
	if err := validation.Struct(def); err != nil {
		return errors.Configuration("invalid provider definition").WithCause(err)
	}
	instance, err := r.factory.Construct(def.ID, def.Implementation, def.Arguments)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if last, ok := r.lastUpdate[def.ID]; onlyNewer && ok && !def.LastUpdate.After(last) {
		r.mu.Unlock()
		r.log.Debug("provider superseded during construction", logger.Fields(logger.FieldProviderID, def.ID))
		r.release(ctx, def.ID, instance)
		return nil
	}
	old, replaced := r.entries[def.ID]
	r.entries[def.ID] = instance
	r.lastUpdate[def.ID] = def.LastUpdate
	r.mu.Unlock()

	r.log.Info("provider updated", logger.Fields(
		logger.FieldProviderID, def.ID,
		logger.FieldImplementation, def.Implementation,
		"replaced", replaced,
	))
	if replaced {
		r.release(ctx, def.ID, old)
	}
	return nil
}

func (r *Registry[T]) refresh(ctx context.Context) {
	refreshID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, observability.SpanProviderRefresh,
		attribute.String(observability.AttrFamily, r.family),
		attribute.String(observability.AttrRefreshID, refreshID),
	)
	defer span.End()
	log := r.log.WithFields(logger.Fields("refresh_id", refreshID))

	defs, err := r.source.ListProviders(ctx)
	if err != nil {
		err = errors.SourceFailure(err)
		observability.SetSpanError(ctx, err)
		r.metrics.RecordRefresh(ctx, r.family, observability.OutcomeFailed)
		log.Error("failure to retrieve provider configuration", logger.MergeWithError(nil, err))
		return
	}

	if len(defs) == 0 {
		removed := r.clear()
		r.metrics.RecordRefresh(ctx, r.family, observability.OutcomeCleared)
		r.metrics.RecordRemoval(ctx, r.family, len(removed))
		log.Info("no provider defined, registry cleared", logger.Fields("removed", len(removed)))
		for id, p := range removed {
			r.notifyRemoved(ctx, id, p)
		}
		return
	}

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		seen[def.ID] = struct{}{}
		if !r.needsUpdate(def) {
			continue
		}
		if err := r.install(ctx, def, true); err != nil {
			r.metrics.RecordConstructionFailure(ctx, r.family)
			log.Error("impossible to update provider", logger.MergeWithError(logger.Fields(
				logger.FieldProviderID, def.ID,
				logger.FieldImplementation, def.Implementation,
			), err))
		}
	}

	removed := r.removeMissing(seen)
	for id, p := range removed {
		log.Info("deleting provider", logger.Fields(logger.FieldProviderID, id))
		r.notifyRemoved(ctx, id, p)
	}
	r.metrics.RecordRemoval(ctx, r.family, len(removed))
	r.metrics.RecordRefresh(ctx, r.family, observability.OutcomeUpdated)
	span.SetAttributes(attribute.Int(observability.AttrProvidersCount, len(seen)))
}

func (r *Registry[T]) needsUpdate(def Definition) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	last, ok := r.lastUpdate[def.ID]
	return !ok || def.LastUpdate.After(last)
}

func (r *Registry[T]) clear() map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.entries
	r.entries = make(map[string]T)
	r.lastUpdate = make(map[string]time.Time)
	return removed
}

func (r *Registry[T]) removeMissing(seen map[string]struct{}) map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make(map[string]T)
	for id, p := range r.entries {
		if _, ok := seen[id]; ok {
			continue
		}
		removed[id] = p
		delete(r.entries, id)
		delete(r.lastUpdate, id)
	}
	return removed
}

func (r *Registry[T]) notifyRemoved(ctx context.Context, id string, p T) {
	for _, hook := range r.onRemove {
		hook(id, p)
	}
	r.release(ctx, id, p)
}

func (r *Registry[T]) release(ctx context.Context, id string, p T) {
	c, ok := any(p).(Closeable)
	if !ok {
		return
	}
	if err := c.Close(ctx); err != nil {
		r.log.Warn("closing provider failed", logger.MergeWithError(
			logger.Fields(logger.FieldProviderID, id), err))
	}
}
