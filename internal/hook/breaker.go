package hook

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dwsmith1983/jobsensor/internal/apierr"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultFailThreshold = 5
	defaultCooldown      = 30 * time.Second
)

// BreakerOpenError is returned instead of calling the remote API while a
// connection's circuit breaker is open. It carries gRPC code Unavailable so
// callers treat it like any other transient server error.
type BreakerOpenError struct {
	Connection string
	Err        error
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("connection %q: circuit breaker open: %v", e.Connection, e.Err)
}

func (e *BreakerOpenError) Unwrap() error { return e.Err }

// GRPCStatus lets status.FromError classify the error as Unavailable.
func (e *BreakerOpenError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.Error())
}

// breaker guards calls for one connection. A nil *breaker passes calls through.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func newBreaker(name string, cfg *types.BreakerConfig, logger *slog.Logger) *breaker {
	if cfg == nil {
		return nil
	}
	threshold := uint32(defaultFailThreshold)
	if cfg.FailThreshold > 0 {
		threshold = uint32(cfg.FailThreshold)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &breaker{
		name: name,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    cfg.FailWindow.Std(),
			Timeout:     cfg.Cooldown.Or(defaultCooldown),
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
			// Only server errors count against the connection. A NotFound for a
			// bad job ID says nothing about the API's health.
			IsSuccessful: func(err error) bool {
				return !apierr.IsServerError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "connection", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (b *breaker) state() gobreaker.State {
	if b == nil {
		return gobreaker.StateClosed
	}
	return b.cb.State()
}

// execute runs fn through the breaker, if any.
func execute[T any](b *breaker, fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, &BreakerOpenError{Connection: b.name, Err: err}
	}
	if out == nil {
		var zero T
		return zero, err
	}
	return out.(T), err
}
