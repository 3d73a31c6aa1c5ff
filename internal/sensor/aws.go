package sensor

import (
	"context"
	"fmt"

	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	emrsltypes "github.com/aws/aws-sdk-go-v2/service/emrserverless/types"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// EMRStepClient fetches the state of an EMR step.
type EMRStepClient interface {
	EMRStepState(ctx context.Context, clusterID, stepID, region string) (emrtypes.StepState, string, error)
}

// EMRServerlessClient fetches the state of an EMR Serverless job run.
type EMRServerlessClient interface {
	EMRServerlessJobRunState(ctx context.Context, applicationID, jobRunID, region string) (emrsltypes.JobRunState, string, error)
}

// GlueClient fetches the state of a Glue job run.
type GlueClient interface {
	GlueJobRunState(ctx context.Context, jobName, runID, region string) (gluetypes.JobRunState, string, error)
}

var emrStepRules = map[emrtypes.StepState]rule{
	emrtypes.StepStateCompleted:     succeeds(),
	emrtypes.StepStateFailed:        failsWith("Step failed"),
	emrtypes.StepStateInterrupted:   failsWith("Step failed"),
	emrtypes.StepStateCancelled:     cancelledWith("Step was cancelled"),
	emrtypes.StepStateCancelPending: cancelledWith("Step was cancelled"),
}

var emrServerlessRules = map[emrsltypes.JobRunState]rule{
	emrsltypes.JobRunStateSuccess:    succeeds(),
	emrsltypes.JobRunStateFailed:     failsWith("Job run failed"),
	emrsltypes.JobRunStateCancelled:  cancelledWith("Job run was cancelled"),
	emrsltypes.JobRunStateCancelling: cancelledWith("Job run was cancelled"),
}

var glueRules = map[gluetypes.JobRunState]rule{
	gluetypes.JobRunStateSucceeded: succeeds(),
	gluetypes.JobRunStateFailed:    failsWith("Job run failed"),
	gluetypes.JobRunStateError:     failsWith("Job run failed"),
	gluetypes.JobRunStateTimeout:   failsWith("Job run failed"),
	gluetypes.JobRunStateStopped:   cancelledWith("Job run was stopped"),
	gluetypes.JobRunStateStopping:  cancelledWith("Job run was stopped"),
}

// EMRStepSensor waits for a step on an EMR cluster.
type EMRStepSensor struct {
	statusSensor[emrtypes.StepState]
}

// NewEMRStep creates an EMR step sensor. Region, cluster and step ID are required.
func NewEMRStep(cfg types.SensorConfig, client EMRStepClient, opts ...Option) (*EMRStepSensor, error) {
	const what = "emr step sensor"
	if err := requireAWSFields(what, cfg.Region, "clusterId", cfg.ClusterID, "stepId", cfg.StepID); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%s: client is required", what)
	}

	s := &EMRStepSensor{}
	s.statusSensor = statusSensor[emrtypes.StepState]{
		base:  newBase(cfg.TaskID, types.SensorEMRStep, opts),
		noun:  "emr step",
		id:    cfg.ClusterID + "/" + cfg.StepID,
		rules: emrStepRules,
		name:  func(st emrtypes.StepState) string { return string(st) },
		fetch: func(ctx context.Context) (observation[emrtypes.StepState], error) {
			state, detail, err := client.EMRStepState(ctx, cfg.ClusterID, cfg.StepID, cfg.Region)
			return observation[emrtypes.StepState]{state: state, detail: detail}, err
		},
	}
	return s, nil
}

// EMRServerlessJobSensor waits for an EMR Serverless job run.
type EMRServerlessJobSensor struct {
	statusSensor[emrsltypes.JobRunState]
}

// NewEMRServerlessJob creates an EMR Serverless job run sensor.
func NewEMRServerlessJob(cfg types.SensorConfig, client EMRServerlessClient, opts ...Option) (*EMRServerlessJobSensor, error) {
	const what = "emr-serverless job sensor"
	if err := requireAWSFields(what, cfg.Region, "applicationId", cfg.ApplicationID, "jobRunId", cfg.JobRunID); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%s: client is required", what)
	}

	s := &EMRServerlessJobSensor{}
	s.statusSensor = statusSensor[emrsltypes.JobRunState]{
		base:  newBase(cfg.TaskID, types.SensorEMRServerlessJob, opts),
		noun:  "emr-serverless job run",
		id:    cfg.ApplicationID + "/" + cfg.JobRunID,
		rules: emrServerlessRules,
		name:  func(st emrsltypes.JobRunState) string { return string(st) },
		fetch: func(ctx context.Context) (observation[emrsltypes.JobRunState], error) {
			state, detail, err := client.EMRServerlessJobRunState(ctx, cfg.ApplicationID, cfg.JobRunID, cfg.Region)
			return observation[emrsltypes.JobRunState]{state: state, detail: detail}, err
		},
	}
	return s, nil
}

// GlueJobSensor waits for a Glue job run.
type GlueJobSensor struct {
	statusSensor[gluetypes.JobRunState]
}

// NewGlueJob creates a Glue job run sensor.
func NewGlueJob(cfg types.SensorConfig, client GlueClient, opts ...Option) (*GlueJobSensor, error) {
	const what = "glue job sensor"
	if err := requireAWSFields(what, cfg.Region, "jobName", cfg.JobName, "runId", cfg.RunID); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%s: client is required", what)
	}

	s := &GlueJobSensor{}
	s.statusSensor = statusSensor[gluetypes.JobRunState]{
		base:  newBase(cfg.TaskID, types.SensorGlueJob, opts),
		noun:  "glue job run",
		id:    cfg.JobName + "/" + cfg.RunID,
		rules: glueRules,
		name:  func(st gluetypes.JobRunState) string { return string(st) },
		fetch: func(ctx context.Context) (observation[gluetypes.JobRunState], error) {
			state, detail, err := client.GlueJobRunState(ctx, cfg.JobName, cfg.RunID, cfg.Region)
			return observation[gluetypes.JobRunState]{state: state, detail: detail}, err
		},
	}
	return s, nil
}

func requireAWSFields(what, region, parentField, parent, idField, id string) error {
	if region == "" {
		return &ConfigError{Sensor: what, Field: "region"}
	}
	if parent == "" {
		return &ConfigError{Sensor: what, Field: parentField}
	}
	if id == "" {
		return &ConfigError{Sensor: what, Field: idField}
	}
	return nil
}
