package types

// Connection describes how to reach a cloud API. Sensors refer to connections by ID;
// an empty connection ID uses ambient credentials.
type Connection struct {
	ID   string         `yaml:"id" json:"id"`
	Type ConnectionType `yaml:"type" json:"type"`

	// GCP
	ProjectID       string `yaml:"projectId,omitempty" json:"projectId,omitempty"` // used by sensors that leave projectId empty
	CredentialsFile string `yaml:"credentialsFile,omitempty" json:"credentialsFile,omitempty"`
	QuotaProject    string `yaml:"quotaProject,omitempty" json:"quotaProject,omitempty"`

	// AWS
	Profile string `yaml:"profile,omitempty" json:"profile,omitempty"`

	Endpoint string         `yaml:"endpoint,omitempty" json:"endpoint,omitempty"` // overrides the regional endpoint
	Breaker  *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig enables a circuit breaker around a connection's remote calls.
type BreakerConfig struct {
	FailThreshold int      `yaml:"failThreshold,omitempty" json:"failThreshold,omitempty"` // consecutive server errors before opening (default 5)
	Cooldown      Duration `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`           // open -> half-open (default 30s)
	FailWindow    Duration `yaml:"failWindow,omitempty" json:"failWindow,omitempty"`       // counter reset interval while closed
}

// SensorConfig is the immutable description of one sensor task.
type SensorConfig struct {
	TaskID       string     `yaml:"taskId" json:"taskId"`
	Type         SensorType `yaml:"type" json:"type"`
	ConnectionID string     `yaml:"connectionId,omitempty" json:"connectionId,omitempty"`
	Region       string     `yaml:"region,omitempty" json:"region,omitempty"`
	ProjectID    string     `yaml:"projectId,omitempty" json:"projectId,omitempty"`

	// dataproc-job / dataproc-batch
	JobID   string `yaml:"jobId,omitempty" json:"jobId,omitempty"`
	BatchID string `yaml:"batchId,omitempty" json:"batchId,omitempty"`

	// emr-step
	ClusterID string `yaml:"clusterId,omitempty" json:"clusterId,omitempty"`
	StepID    string `yaml:"stepId,omitempty" json:"stepId,omitempty"`

	// emr-serverless-job
	ApplicationID string `yaml:"applicationId,omitempty" json:"applicationId,omitempty"`
	JobRunID      string `yaml:"jobRunId,omitempty" json:"jobRunId,omitempty"`

	// glue-job
	JobName string `yaml:"jobName,omitempty" json:"jobName,omitempty"`
	RunID   string `yaml:"runId,omitempty" json:"runId,omitempty"`

	Timeout      Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`           // overall budget enforced by the wait loop
	WaitTimeout  Duration `yaml:"waitTimeout,omitempty" json:"waitTimeout,omitempty"`   // dataproc-job only: tolerance for server errors
	PokeInterval Duration `yaml:"pokeInterval,omitempty" json:"pokeInterval,omitempty"` // time between pokes
}

// ProjectConfig is the top-level jobsensor.yaml configuration.
type ProjectConfig struct {
	Connections []Connection   `yaml:"connections,omitempty" json:"connections,omitempty"`
	Sensors     []SensorConfig `yaml:"sensors" json:"sensors"`
}

// Sensor returns the sensor with the given task ID.
func (p *ProjectConfig) Sensor(taskID string) (SensorConfig, bool) {
	for _, s := range p.Sensors {
		if s.TaskID == taskID {
			return s, true
		}
	}
	return SensorConfig{}, false
}
