// Package testutil provides shared test fakes for the cloud clients sensors poke.
package testutil

import (
	"context"
	"sync"

	dataprocpb "cloud.google.com/go/dataproc/v2/apiv1/dataprocpb"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	emrsltypes "github.com/aws/aws-sdk-go-v2/service/emrserverless/types"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FakeDataproc replays scripted job and batch states. The last state of each
// script repeats; unknown IDs return NotFound. Safe for concurrent use.
type FakeDataproc struct {
	JobStates    map[string][]dataprocpb.JobStatus_State
	BatchStates  map[string][]dataprocpb.Batch_State
	StateMessage string
	Err          error

	mu       sync.Mutex
	calls    map[string]int
	projects map[string]string
}

// next returns the script index for id and records the call.
func (f *FakeDataproc) next(id, projectID string, n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
		f.projects = make(map[string]string)
	}
	i := min(f.calls[id], n-1)
	f.calls[id]++
	f.projects[id] = projectID
	return i
}

func (f *FakeDataproc) GetJob(_ context.Context, jobID, _, projectID string) (*dataprocpb.Job, error) {
	seq := f.JobStates[jobID]
	i := f.next(jobID, projectID, len(seq))
	if f.Err != nil {
		return nil, f.Err
	}
	if len(seq) == 0 {
		return nil, status.Errorf(codes.NotFound, "job %s not found", jobID)
	}
	return &dataprocpb.Job{Status: &dataprocpb.JobStatus{State: seq[i], Details: f.StateMessage}}, nil
}

func (f *FakeDataproc) GetBatch(_ context.Context, batchID, _, projectID string) (*dataprocpb.Batch, error) {
	seq := f.BatchStates[batchID]
	i := f.next(batchID, projectID, len(seq))
	if f.Err != nil {
		return nil, f.Err
	}
	if len(seq) == 0 {
		return nil, status.Errorf(codes.NotFound, "batch %s not found", batchID)
	}
	return &dataprocpb.Batch{State: seq[i], StateMessage: f.StateMessage}, nil
}

// Calls returns how many times id was fetched.
func (f *FakeDataproc) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// Project returns the project of the last fetch of id.
func (f *FakeDataproc) Project(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[id]
}

// FakeAWS returns fixed EMR, EMR Serverless and Glue states.
type FakeAWS struct {
	StepState emrtypes.StepState
	RunState  emrsltypes.JobRunState
	GlueState gluetypes.JobRunState
	Detail    string
	Err       error
}

func (f *FakeAWS) EMRStepState(context.Context, string, string, string) (emrtypes.StepState, string, error) {
	return f.StepState, f.Detail, f.Err
}

func (f *FakeAWS) EMRServerlessJobRunState(context.Context, string, string, string) (emrsltypes.JobRunState, string, error) {
	return f.RunState, f.Detail, f.Err
}

func (f *FakeAWS) GlueJobRunState(context.Context, string, string, string) (gluetypes.JobRunState, string, error) {
	return f.GlueState, f.Detail, f.Err
}
