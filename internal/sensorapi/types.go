// Package sensorapi provides the request/response types, dependency wiring and
// handler shared by the serverless single-poke entry points.
package sensorapi

import (
	"time"

	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// PokeRequest asks for one poke. Either TaskID names a sensor in the loaded
// project config, or Sensor carries the config inline.
type PokeRequest struct {
	TaskID string              `json:"taskId,omitempty"`
	Sensor *types.SensorConfig `json:"sensor,omitempty"`

	// StartedAt is when the orchestrator began waiting. The soft wait timeout
	// is measured from it; zero means now.
	StartedAt time.Time `json:"startedAt,omitzero"`
}

// PokeResponse reports the outcome of one poke. Poke errors are reported here
// rather than failing the invocation.
type PokeResponse struct {
	TaskID  string          `json:"taskId"`
	State   types.PokeState `json:"state"`
	Done    bool            `json:"done"`
	Message string          `json:"message,omitempty"`
}
