// Package observability wires OpenTelemetry tracing and metrics for mobilitykit.
//
//	shutdown, err := observability.Init(ctx, cfg.Observability, "mobilityd", version.Get().String())
//	defer shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanDirectPath)
//	defer span.End()
//
// Registries record refresh outcomes, construction failures and removals
// through Metrics; a nil *Metrics records nothing.
package observability
