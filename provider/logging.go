package provider

import (
	"context"
	"time"

	"github.com/kbukum/mobilitykit/logger"
)

// WithLogging returns a Middleware that logs each Execute call with the
// backend name, operation and duration. Failures are logged at warn level.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string { return l.inner.Name() }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)

	fields := logger.MergeWithDuration(logger.Fields(
		logger.FieldProviderID, l.inner.Name(),
		logger.FieldOperation, operationOf(input),
	), time.Since(start))
	if err != nil {
		l.log.Warn("backend request failed", logger.MergeWithError(fields, err))
	} else {
		l.log.Debug("backend request ok", fields)
	}
	return output, err
}
