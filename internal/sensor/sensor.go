// Package sensor implements sensors: components an orchestrator pokes repeatedly to
// learn whether a remote data-processing job has finished. A poke makes exactly
// one read-only remote call and classifies the returned state into done, still
// running, or a terminal failure.
package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// Sensor is a single pokeable condition.
//
// Poke returns true when the watched resource completed successfully, false
// while it is still in progress, and an error when it reached a terminal failure
// state or could not be fetched.
type Sensor interface {
	TaskID() string
	Type() types.SensorType
	Poke(ctx context.Context) (bool, error)
}

// Option configures a sensor at construction.
type Option func(*base)

// WithLogger sets the sensor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock replaces time.Now (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStartTime sets the instant the sensor's wait started. Stateless callers
// that rebuild the sensor on every poke pass the original start here.
func WithStartTime(t time.Time) Option {
	return func(b *base) { b.start = t }
}

// base holds what every sensor shares: identity, logging and the wait clock.
type base struct {
	taskID     string
	sensorType types.SensorType
	logger     *slog.Logger
	now        func() time.Time
	start      time.Time
}

func newBase(taskID string, sensorType types.SensorType, opts []Option) base {
	b := base{
		taskID:     taskID,
		sensorType: sensorType,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(&b)
	}
	if b.start.IsZero() {
		b.start = b.now()
	}
	b.logger = b.logger.With("task", taskID, "sensorType", string(sensorType))
	return b
}

// TaskID returns the orchestrator task this sensor belongs to.
func (b *base) TaskID() string { return b.taskID }

// Type returns the sensor kind.
func (b *base) Type() types.SensorType { return b.sensorType }

// elapsed returns the time since the sensor started waiting.
func (b *base) elapsed() time.Duration {
	return b.now().Sub(b.start)
}
