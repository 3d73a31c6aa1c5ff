// Package telemetry wires OpenTelemetry metric and trace providers. Export is
// enabled only when an OTLP endpoint is configured through the standard
// OTEL_EXPORTER_OTLP_* environment variables.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Providers bundles the providers handed to the runner.
type Providers struct {
	Meter   metric.MeterProvider
	Tracer  trace.TracerProvider
	Enabled bool

	flush    []func(context.Context) error
	shutdown []func(context.Context) error
}

// NewSDK wraps SDK providers so their buffered telemetry can be flushed and shut down.
func NewSDK(mp *sdkmetric.MeterProvider, tp *sdktrace.TracerProvider) *Providers {
	return &Providers{
		Meter:    mp,
		Tracer:   tp,
		Enabled:  true,
		flush:    []func(context.Context) error{tp.ForceFlush, mp.ForceFlush},
		shutdown: []func(context.Context) error{tp.Shutdown, mp.Shutdown},
	}
}

// ForceFlush exports buffered spans and metrics without stopping the providers.
func (p *Providers) ForceFlush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return run(ctx, p.flush)
}

// Shutdown flushes and stops the exporters.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return run(ctx, p.shutdown)
}

func run(ctx context.Context, fns []func(context.Context) error) error {
	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// Endpoint returns the configured OTLP endpoint, or "".
func Endpoint() string {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Setup builds OTLP/gRPC providers for service, or no-op providers when no
// endpoint is configured. The providers are also installed globally.
func Setup(ctx context.Context, service string) (*Providers, error) {
	if Endpoint() == "" {
		return &Providers{
			Meter:  metricnoop.NewMeterProvider(),
			Tracer: tracenoop.NewTracerProvider(),
		}, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", service))

	mexp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	texp, err := otlptracegrpc.New(ctx)
	if err != nil {
		_ = mexp.Shutdown(ctx)
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(mexp)),
		sdkmetric.WithResource(res),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(texp),
		sdktrace.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return NewSDK(mp, tp), nil
}
