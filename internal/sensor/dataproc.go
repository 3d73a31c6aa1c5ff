package sensor

import (
	"context"
	"fmt"
	"time"

	dataprocpb "cloud.google.com/go/dataproc/v2/apiv1/dataprocpb"
	"github.com/dwsmith1983/jobsensor/internal/apierr"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// DataprocJobClient fetches Dataproc jobs.
type DataprocJobClient interface {
	GetJob(ctx context.Context, jobID, region, projectID string) (*dataprocpb.Job, error)
}

// DataprocBatchClient fetches Dataproc Serverless batches.
type DataprocBatchClient interface {
	GetBatch(ctx context.Context, batchID, region, projectID string) (*dataprocpb.Batch, error)
}

var dataprocJobRules = map[dataprocpb.JobStatus_State]rule{
	dataprocpb.JobStatus_DONE:           succeeds(),
	dataprocpb.JobStatus_ERROR:          failsWith("Job failed"),
	dataprocpb.JobStatus_CANCELLED:      cancelledWith("Job was cancelled"),
	dataprocpb.JobStatus_CANCEL_PENDING: cancelledWith("Job was cancelled"),
	dataprocpb.JobStatus_CANCEL_STARTED: cancelledWith("Job was cancelled"),
}

var dataprocBatchRules = map[dataprocpb.Batch_State]rule{
	dataprocpb.Batch_SUCCEEDED:  succeeds(),
	dataprocpb.Batch_FAILED:     failsWith("Batch failed"),
	dataprocpb.Batch_CANCELLED:  cancelledWith("Batch was cancelled."),
	dataprocpb.Batch_CANCELLING: cancelledWith("Batch was cancelled."),
}

// DataprocJobSensor waits for a Dataproc job to finish.
//
// When a wait timeout is configured, server errors from the Dataproc API are
// tolerated until the wait timeout has elapsed since the sensor started.
type DataprocJobSensor struct {
	statusSensor[dataprocpb.JobStatus_State]
	waitTimeout time.Duration
}

// NewDataprocJob creates a job sensor. Region, project and job ID are required.
func NewDataprocJob(cfg types.SensorConfig, client DataprocJobClient, opts ...Option) (*DataprocJobSensor, error) {
	const what = "dataproc job sensor"
	if err := requireFields(what, cfg.Region, cfg.ProjectID, "jobId", cfg.JobID); err != nil {
		return nil, err
	}
	if cfg.WaitTimeout < 0 {
		return nil, &ConfigError{Sensor: what, Field: "waitTimeout", Reason: "must not be negative"}
	}
	if client == nil {
		return nil, fmt.Errorf("%s: client is required", what)
	}

	s := &DataprocJobSensor{waitTimeout: cfg.WaitTimeout.Std()}
	s.statusSensor = statusSensor[dataprocpb.JobStatus_State]{
		base:  newBase(cfg.TaskID, types.SensorDataprocJob, opts),
		noun:  "dataproc job",
		id:    cfg.JobID,
		rules: dataprocJobRules,
		name:  dataprocpb.JobStatus_State.String,
		fetch: func(ctx context.Context) (observation[dataprocpb.JobStatus_State], error) {
			job, err := client.GetJob(ctx, cfg.JobID, cfg.Region, cfg.ProjectID)
			if err != nil {
				return observation[dataprocpb.JobStatus_State]{}, err
			}
			return observation[dataprocpb.JobStatus_State]{
				state:  job.GetStatus().GetState(),
				detail: job.GetStatus().GetDetails(),
			}, nil
		},
	}
	return s, nil
}

// Poke fetches the job once and classifies its state.
func (s *DataprocJobSensor) Poke(ctx context.Context) (bool, error) {
	obs, err := s.fetch(ctx)
	if err != nil {
		if s.waitTimeout > 0 && apierr.IsServerError(err) {
			return s.tolerate(err)
		}
		return false, s.fetchErr(err)
	}
	if obs.state == dataprocpb.JobStatus_ATTEMPT_FAILURE {
		s.logger.Debug("job attempt has failed", "id", s.id)
	}
	return s.classify(obs)
}

func (s *DataprocJobSensor) tolerate(err error) (bool, error) {
	elapsed := s.elapsed()
	if elapsed > s.waitTimeout {
		return false, &WaitTimeoutError{
			Noun:        s.noun,
			ID:          s.id,
			WaitTimeout: s.waitTimeout,
			Elapsed:     elapsed,
			Err:         err,
		}
	}
	s.logger.Info("dataproc API returned server error while waiting for job, retrying",
		"id", s.id,
		"elapsed", elapsed.String(),
		"waitTimeout", s.waitTimeout.String(),
		"error", err,
	)
	return false, nil
}

// DataprocBatchSensor waits for a Dataproc Serverless batch to finish. Fetch
// errors always propagate; the overall timeout is left to the caller.
type DataprocBatchSensor struct {
	statusSensor[dataprocpb.Batch_State]
}

// NewDataprocBatch creates a batch sensor. Region, project and batch ID are required.
func NewDataprocBatch(cfg types.SensorConfig, client DataprocBatchClient, opts ...Option) (*DataprocBatchSensor, error) {
	const what = "dataproc batch sensor"
	if err := requireFields(what, cfg.Region, cfg.ProjectID, "batchId", cfg.BatchID); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%s: client is required", what)
	}

	s := &DataprocBatchSensor{}
	s.statusSensor = statusSensor[dataprocpb.Batch_State]{
		base:  newBase(cfg.TaskID, types.SensorDataprocBatch, opts),
		noun:  "dataproc batch",
		id:    cfg.BatchID,
		rules: dataprocBatchRules,
		name:  dataprocpb.Batch_State.String,
		fetch: func(ctx context.Context) (observation[dataprocpb.Batch_State], error) {
			batch, err := client.GetBatch(ctx, cfg.BatchID, cfg.Region, cfg.ProjectID)
			if err != nil {
				return observation[dataprocpb.Batch_State]{}, err
			}
			return observation[dataprocpb.Batch_State]{
				state:  batch.GetState(),
				detail: batch.GetStateMessage(),
			}, nil
		},
	}
	return s, nil
}

// requireFields checks region, project and the resource ID, in that order.
func requireFields(what, region, projectID, idField, id string) error {
	if region == "" {
		return &ConfigError{Sensor: what, Field: "region"}
	}
	if projectID == "" {
		return &ConfigError{Sensor: what, Field: "projectId"}
	}
	if id == "" {
		return &ConfigError{Sensor: what, Field: idField}
	}
	return nil
}
