package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dwsmith1983/jobsensor/internal/sensor"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPokeInterval is the time between pokes when a sensor sets none.
	DefaultPokeInterval = 60 * time.Second
	// DefaultTimeout bounds a wait when a sensor sets no timeout.
	DefaultTimeout = 7 * 24 * time.Hour
)

// SensorTimeoutError is returned by Wait when the sensor did not finish within
// its timeout.
type SensorTimeoutError struct {
	TaskID  string
	Timeout time.Duration
	Last    error // last poke error, if any
}

func (e *SensorTimeoutError) Error() string {
	return fmt.Sprintf("sensor %s timed out after %s", e.TaskID, e.Timeout)
}

func (e *SensorTimeoutError) Unwrap() error { return e.Last }

// Wait builds the sensor and pokes it immediately and then every poke interval,
// until it reports done, returns an error, or its timeout elapses.
func (r *Runner) Wait(ctx context.Context, cfg types.SensorConfig) error {
	s, err := r.Build(cfg)
	if err != nil {
		return err
	}
	return r.WaitSensor(ctx, s, cfg.PokeInterval.Or(DefaultPokeInterval), cfg.Timeout.Or(DefaultTimeout))
}

// WaitSensor drives an already built sensor.
func (r *Runner) WaitSensor(ctx context.Context, s sensor.Sensor, interval, timeout time.Duration) error {
	attempt := ulid.Make().String()
	logger := r.logger.With("task", s.TaskID(), "attempt", attempt)
	logger.Info("waiting for sensor", "pokeInterval", interval.String(), "timeout", timeout.String())

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	finish := func(err error) error {
		var state types.PokeState
		if err == nil {
			state = types.PokeDone
		} else {
			state = sensor.StateOf(false, err)
		}
		var terr *SensorTimeoutError
		if errors.As(err, &terr) {
			state = types.PokeTimeout
		}
		took := time.Since(start)
		r.metrics.RecordWait(ctx, s.Type(), state, took)
		logger.Info("sensor finished", "state", string(state), "elapsed", took.String())
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for pokes := 1; ; pokes++ {
		done, err := r.poke(waitCtx, s)
		if err == nil && done {
			logger.Debug("sensor condition met", "pokes", pokes)
			return finish(nil)
		}
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return finish(&SensorTimeoutError{TaskID: s.TaskID(), Timeout: timeout, Last: err})
		}
		if err != nil {
			return finish(err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			return finish(&SensorTimeoutError{TaskID: s.TaskID(), Timeout: timeout})
		case <-ticker.C:
		}
	}
}

// WaitAll waits for every sensor concurrently and returns the first error.
// The remaining waits are cancelled once one fails.
func (r *Runner) WaitAll(ctx context.Context, cfgs []types.SensorConfig) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cfg := range cfgs {
		g.Go(func() error {
			if err := r.Wait(gctx, cfg); err != nil {
				return fmt.Errorf("sensor %s: %w", cfg.TaskID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// poke runs one poke inside a span and records it.
func (r *Runner) poke(ctx context.Context, s sensor.Sensor) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "sensor.poke", trace.WithAttributes(
		attribute.String("sensor.task", s.TaskID()),
		attribute.String("sensor.type", string(s.Type())),
	))
	defer span.End()

	start := time.Now()
	done, err := s.Poke(ctx)
	state := sensor.StateOf(done, err)
	r.metrics.RecordPoke(ctx, s.Type(), state, time.Since(start))

	span.SetAttributes(attribute.String("sensor.state", string(state)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return done, err
}
