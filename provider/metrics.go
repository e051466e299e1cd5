package provider

import (
	"context"
	"time"

	"github.com/kbukum/mobilitykit/observability"
)

// WithRequestMetrics returns a Middleware recording the duration and outcome
// of each Execute call as a backend request. A nil metrics records nothing.
func WithRequestMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.Metrics
}

func (m *metricsRR[I, O]) Name() string { return m.inner.Name() }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordBackendRequest(ctx, m.inner.Name(), operationOf(input), status, time.Since(start))
	return output, err
}
