// Package types defines the public domain types for jobsensor.
package types

// SensorType defines which remote resource a sensor watches.
type SensorType string

// SensorType values enumerate the supported sensor kinds.
const (
	SensorDataprocJob      SensorType = "dataproc-job"
	SensorDataprocBatch    SensorType = "dataproc-batch"
	SensorEMRStep          SensorType = "emr-step"
	SensorEMRServerlessJob SensorType = "emr-serverless-job"
	SensorGlueJob          SensorType = "glue-job"
)

// Valid reports whether t is a known sensor type.
func (t SensorType) Valid() bool {
	switch t {
	case SensorDataprocJob, SensorDataprocBatch, SensorEMRStep, SensorEMRServerlessJob, SensorGlueJob:
		return true
	}
	return false
}

// ConnectionKind returns the kind of connection the sensor type talks through.
func (t SensorType) ConnectionKind() ConnectionType {
	switch t {
	case SensorEMRStep, SensorEMRServerlessJob, SensorGlueJob:
		return ConnectionAWS
	default:
		return ConnectionGCP
	}
}

// PokeState is the normalized outcome of a single poke.
type PokeState string

const (
	PokeRunning   PokeState = "running"
	PokeDone      PokeState = "done"
	PokeFailed    PokeState = "failed"
	PokeCancelled PokeState = "cancelled"
	PokeTimeout   PokeState = "timeout"
	PokeError     PokeState = "error"
)

// IsTerminal returns true if no further pokes should follow this state.
func (s PokeState) IsTerminal() bool {
	return s != PokeRunning
}

// ConnectionType defines the cloud a connection authenticates against.
type ConnectionType string

// ConnectionType values enumerate the supported connection backends.
const (
	ConnectionGCP ConnectionType = "gcp"
	ConnectionAWS ConnectionType = "aws"
)
