// Package metrics records sensor activity as OpenTelemetry instruments and
// mirrors the totals into expvar counters.
package metrics

import (
	"context"
	"expvar"
	"fmt"
	"time"

	"github.com/dwsmith1983/jobsensor/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope for every instrument created here.
const ScopeName = "github.com/dwsmith1983/jobsensor"

var (
	PokesTotal    = expvar.NewInt("pokes_total")
	PokeErrors    = expvar.NewInt("poke_errors")
	WaitsTotal    = expvar.NewInt("waits_total")
	WaitsTimedOut = expvar.NewInt("waits_timed_out")
)

// Recorder holds the sensor instruments. A nil *Recorder records nothing.
type Recorder struct {
	pokes        metric.Int64Counter
	pokeDuration metric.Float64Histogram
	waits        metric.Int64Counter
	waitDuration metric.Float64Histogram
}

// New creates a Recorder on mp. A nil provider uses a no-op provider.
func New(mp metric.MeterProvider) (*Recorder, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(ScopeName)

	pokes, err := meter.Int64Counter("jobsensor.pokes",
		metric.WithDescription("Sensor pokes by resulting state"))
	if err != nil {
		return nil, fmt.Errorf("creating pokes counter: %w", err)
	}
	pokeDuration, err := meter.Float64Histogram("jobsensor.poke.duration",
		metric.WithDescription("Latency of a single poke"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating poke duration histogram: %w", err)
	}
	waits, err := meter.Int64Counter("jobsensor.waits",
		metric.WithDescription("Completed sensor waits by final state"))
	if err != nil {
		return nil, fmt.Errorf("creating waits counter: %w", err)
	}
	waitDuration, err := meter.Float64Histogram("jobsensor.wait.duration",
		metric.WithDescription("Time from first poke to final state"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating wait duration histogram: %w", err)
	}

	return &Recorder{
		pokes:        pokes,
		pokeDuration: pokeDuration,
		waits:        waits,
		waitDuration: waitDuration,
	}, nil
}

// RecordPoke records one poke of a sensor.
func (r *Recorder) RecordPoke(ctx context.Context, sensorType types.SensorType, state types.PokeState, took time.Duration) {
	PokesTotal.Add(1)
	if state == types.PokeError {
		PokeErrors.Add(1)
	}
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("sensor.type", string(sensorType)),
		attribute.String("state", string(state)),
	)
	r.pokes.Add(ctx, 1, attrs)
	r.pokeDuration.Record(ctx, took.Seconds(), attrs)
}

// RecordWait records the outcome of a full wait loop.
func (r *Recorder) RecordWait(ctx context.Context, sensorType types.SensorType, state types.PokeState, took time.Duration) {
	WaitsTotal.Add(1)
	if state == types.PokeTimeout {
		WaitsTimedOut.Add(1)
	}
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("sensor.type", string(sensorType)),
		attribute.String("state", string(state)),
	)
	r.waits.Add(ctx, 1, attrs)
	r.waitDuration.Record(ctx, took.Seconds(), attrs)
}
