package sensor

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// ErrInvalidConfig is matched by every configuration error returned from a
// sensor constructor.
var ErrInvalidConfig = errors.New("invalid sensor config")

// ConfigError reports a missing or malformed construction parameter.
type ConfigError struct {
	Sensor string // e.g. "dataproc job sensor"
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s %s", e.Sensor, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: missing keyword argument '%s'", e.Sensor, e.Field)
}

// Is makes errors.Is(err, ErrInvalidConfig) true for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// TerminalError is returned from Poke when the remote resource reached a
// failure or cancellation state. It is not retriable.
type TerminalError struct {
	Kind   types.PokeState // PokeFailed or PokeCancelled
	Reason string          // "Job failed", "Batch was cancelled.", ...
	Noun   string          // "dataproc job"
	ID     string
	State  string // remote state name
	Detail string // remote diagnostic, if any
}

func (e *TerminalError) Error() string {
	msg := fmt.Sprintf("%s (%s %s, state %s)", e.Reason, e.Noun, e.ID, e.State)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Cancelled reports whether the resource was cancelled rather than failed.
func (e *TerminalError) Cancelled() bool {
	return e.Kind == types.PokeCancelled
}

// WaitTimeoutError is returned when the remote service kept answering with
// server errors for longer than the sensor's wait timeout.
type WaitTimeoutError struct {
	Noun        string
	ID          string
	WaitTimeout time.Duration
	Elapsed     time.Duration
	Err         error // last server error
}

func (e *WaitTimeoutError) Error() string {
	secs := strconv.FormatFloat(e.WaitTimeout.Seconds(), 'f', -1, 64)
	return fmt.Sprintf("Timeout: %s %s is not ready after %ss", e.Noun, e.ID, secs)
}

func (e *WaitTimeoutError) Unwrap() error { return e.Err }

// StateOf maps the result of a poke to its normalized state.
func StateOf(done bool, err error) types.PokeState {
	if err == nil {
		if done {
			return types.PokeDone
		}
		return types.PokeRunning
	}
	var terr *TerminalError
	if errors.As(err, &terr) {
		return terr.Kind
	}
	var werr *WaitTimeoutError
	if errors.As(err, &werr) {
		return types.PokeTimeout
	}
	return types.PokeError
}
