package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/bucketgate/component"
	"github.com/kbukum/bucketgate/logger"
)

// Telemetry is the lifecycle component owning the tracer and meter providers.
type Telemetry struct {
	cfg  Config
	info ServiceInfo
	log  *logger.Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// NewTelemetry creates the telemetry component.
func NewTelemetry(cfg Config, info ServiceInfo, log *logger.Logger) *Telemetry {
	return &Telemetry{cfg: cfg, info: info, log: log.WithComponent("telemetry")}
}

// Name implements component.Component.
func (t *Telemetry) Name() string { return "telemetry" }

// Start installs global providers when export is enabled. The propagator is
// installed either way so inbound trace context is honored.
func (t *Telemetry) Start(ctx context.Context) error {
	installPropagator()
	if !t.cfg.Enabled {
		t.log.Info("Telemetry export disabled")
		return nil
	}

	tp, err := NewTracerProvider(ctx, t.cfg, t.info)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	mp, err := NewMeterProvider(ctx, t.cfg, t.info)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("meter: %w", err)
	}
	t.tp, t.mp = tp, mp
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	t.log.Info("Telemetry export enabled", logger.Fields(
		"endpoint", t.cfg.Endpoint,
		"sample_rate", t.cfg.SampleRate,
		"interval", t.cfg.MetricInterval.String(),
	))
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.tp != nil {
		errs = append(errs, t.tp.Shutdown(ctx))
	}
	if t.mp != nil {
		errs = append(errs, t.mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Health implements component.Component.
func (t *Telemetry) Health(ctx context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (t *Telemetry) Describe() component.Description {
	details := "disabled"
	if t.cfg.Enabled {
		details = "otlp/http " + t.cfg.Endpoint
	}
	return component.Description{Name: "OpenTelemetry", Type: "telemetry", Details: details}
}
