package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider builds an OTLP/HTTP meter provider with a periodic reader.
func NewMeterProvider(ctx context.Context, cfg Config, info ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(info)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	), nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(instrumentationName + "/" + name)
}

// OperationMetrics counts and times named operations, e.g. gateway calls or
// HTTP requests.
type OperationMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewOperationMetrics creates the instruments on meter.
func NewOperationMetrics(meter metric.Meter) (*OperationMetrics, error) {
	total, err := meter.Int64Counter("operation.total",
		metric.WithDescription("Total number of operations by outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}
	duration, err := meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}
	inflight, err := meter.Int64UpDownCounter("operation.active",
		metric.WithDescription("Operations currently in flight"))
	if err != nil {
		return nil, fmt.Errorf("creating operation.active counter: %w", err)
	}
	return &OperationMetrics{total: total, duration: duration, inflight: inflight}, nil
}

// Begin marks an operation as in flight. Call the returned func with its
// outcome ("ok" or an error code) when it finishes.
func (m *OperationMetrics) Begin(ctx context.Context, operation string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	op := attribute.String(string(AttrOperation), operation)
	m.inflight.Add(ctx, 1, metric.WithAttributes(op))
	return func(status string) {
		m.inflight.Add(ctx, -1, metric.WithAttributes(op))
		m.Record(ctx, operation, status, time.Since(start))
	}
}

// Record records one finished operation.
func (m *OperationMetrics) Record(ctx context.Context, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	op := attribute.String(string(AttrOperation), operation)
	m.total.Add(ctx, 1, metric.WithAttributes(op, attribute.String(string(AttrStatus), status)))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(op))
}
