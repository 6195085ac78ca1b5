// Package observability wires OpenTelemetry tracing and metrics.
//
// The Telemetry component installs OTLP/HTTP tracer and meter providers as the
// otel globals when enabled; when disabled the globals stay no-op and every
// instrument below is free to call.
//
//	ctx, span := observability.StartSpan(ctx, "gateway.upload")
//	defer span.End()
//
//	m, _ := observability.NewOperationMetrics(observability.Meter("gateway"))
//	m.Record(ctx, "upload", "ok", time.Since(start))
package observability
