package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Refresh outcomes recorded on provider.refresh.total.
const (
	OutcomeUpdated = "updated"
	OutcomeFailed  = "source_failure"
	OutcomeCleared = "cleared"
)

// Meter returns the mobilitykit meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the instruments for provider registries and routing calls.
type Metrics struct {
	refreshTotal         metric.Int64Counter
	constructionFailures metric.Int64Counter
	removedTotal         metric.Int64Counter
	backendDuration      metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	refreshTotal, err := meter.Int64Counter("provider.refresh.total",
		metric.WithDescription("Provider registry refresh cycles by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider.refresh.total counter: %w", err)
	}

	constructionFailures, err := meter.Int64Counter("provider.construction.failures",
		metric.WithDescription("Provider definitions that failed to construct"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider.construction.failures counter: %w", err)
	}

	removedTotal, err := meter.Int64Counter("provider.removed.total",
		metric.WithDescription("Providers removed because their definition disappeared"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider.removed.total counter: %w", err)
	}

	backendDuration, err := meter.Float64Histogram("backend.request.duration",
		metric.WithDescription("Duration of backend requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating backend.request.duration histogram: %w", err)
	}

	return &Metrics{
		refreshTotal:         refreshTotal,
		constructionFailures: constructionFailures,
		removedTotal:         removedTotal,
		backendDuration:      backendDuration,
	}, nil
}

// RecordRefresh records one registry refresh cycle.
func (m *Metrics) RecordRefresh(ctx context.Context, family, outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("family", family),
		attribute.String("outcome", outcome),
	))
}

// RecordConstructionFailure records a definition that could not be built.
func (m *Metrics) RecordConstructionFailure(ctx context.Context, family string) {
	if m == nil {
		return
	}
	m.constructionFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordRemoval records providers dropped from a registry.
func (m *Metrics) RecordRemoval(ctx context.Context, family string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.removedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("family", family)))
}

// RecordBackendRequest records one call to a routing or availability backend.
func (m *Metrics) RecordBackendRequest(ctx context.Context, backend, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.backendDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
