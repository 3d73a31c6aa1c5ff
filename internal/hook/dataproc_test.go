package hook

import (
	"context"
	"testing"

	dataprocpb "cloud.google.com/go/dataproc/v2/apiv1/dataprocpb"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mockJobController struct {
	out    *dataprocpb.Job
	err    error
	reqs   []*dataprocpb.GetJobRequest
	closed bool
}

func (m *mockJobController) GetJob(_ context.Context, req *dataprocpb.GetJobRequest) (*dataprocpb.Job, error) {
	m.reqs = append(m.reqs, req)
	return m.out, m.err
}

func (m *mockJobController) Close() error {
	m.closed = true
	return nil
}

type mockBatchController struct {
	out  *dataprocpb.Batch
	err  error
	reqs []*dataprocpb.GetBatchRequest
}

func (m *mockBatchController) GetBatch(_ context.Context, req *dataprocpb.GetBatchRequest) (*dataprocpb.Batch, error) {
	m.reqs = append(m.reqs, req)
	return m.out, m.err
}

func (m *mockBatchController) Close() error { return nil }

func TestDataproc_GetJob(t *testing.T) {
	jobs := &mockJobController{out: &dataprocpb.Job{
		Status: &dataprocpb.JobStatus{State: dataprocpb.JobStatus_RUNNING},
	}}
	d := NewDataproc(types.Connection{}, WithJobController(jobs))

	job, err := d.GetJob(context.Background(), "job-1", "us-central1", "my-project")
	require.NoError(t, err)
	assert.Equal(t, dataprocpb.JobStatus_RUNNING, job.GetStatus().GetState())

	require.Len(t, jobs.reqs, 1)
	assert.Equal(t, "my-project", jobs.reqs[0].GetProjectId())
	assert.Equal(t, "us-central1", jobs.reqs[0].GetRegion())
	assert.Equal(t, "job-1", jobs.reqs[0].GetJobId())
}

func TestDataproc_GetJobError(t *testing.T) {
	jobs := &mockJobController{err: status.Error(codes.NotFound, "job not found")}
	d := NewDataproc(types.Connection{}, WithJobController(jobs))

	_, err := d.GetJob(context.Background(), "job-1", "us-central1", "p")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestDataproc_GetBatch(t *testing.T) {
	batches := &mockBatchController{out: &dataprocpb.Batch{State: dataprocpb.Batch_SUCCEEDED}}
	d := NewDataproc(types.Connection{}, WithBatchController(batches))

	batch, err := d.GetBatch(context.Background(), "b-1", "europe-west1", "my-project")
	require.NoError(t, err)
	assert.Equal(t, dataprocpb.Batch_SUCCEEDED, batch.GetState())

	require.Len(t, batches.reqs, 1)
	assert.Equal(t, "projects/my-project/locations/europe-west1/batches/b-1", batches.reqs[0].GetName())
}

func TestDataproc_BreakerWrapsCalls(t *testing.T) {
	jobs := &mockJobController{err: status.Error(codes.Unavailable, "down")}
	d := NewDataproc(types.Connection{
		ID:      "gcp",
		Breaker: &types.BreakerConfig{FailThreshold: 1},
	}, WithJobController(jobs))

	_, err := d.GetJob(context.Background(), "j", "r", "p")
	require.Error(t, err)
	_, err = d.GetJob(context.Background(), "j", "r", "p")

	var open *BreakerOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "gcp/dataproc", open.Connection)
	assert.Len(t, jobs.reqs, 1)
}

func TestDataproc_CloseLeavesInjectedClients(t *testing.T) {
	jobs := &mockJobController{}
	d := NewDataproc(types.Connection{}, WithJobController(jobs))
	require.NoError(t, d.Close())
	assert.False(t, jobs.closed)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		conn   types.Connection
		region string
		want   string
	}{
		{"regional", types.Connection{}, "us-central1", "us-central1-dataproc.googleapis.com:443"},
		{"global", types.Connection{}, "global", "dataproc.googleapis.com:443"},
		{"override", types.Connection{Endpoint: "localhost:8080"}, "us-central1", "localhost:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Endpoint(tt.conn, tt.region))
		})
	}
}
