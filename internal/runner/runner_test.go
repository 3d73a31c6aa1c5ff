package runner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	dataprocpb "cloud.google.com/go/dataproc/v2/apiv1/dataprocpb"
	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	emrsltypes "github.com/aws/aws-sdk-go-v2/service/emrserverless/types"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/dwsmith1983/jobsensor/internal/metrics"
	"github.com/dwsmith1983/jobsensor/internal/sensor"
	"github.com/dwsmith1983/jobsensor/internal/testutil"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fakeDataproc(states map[string][]dataprocpb.JobStatus_State) *testutil.FakeDataproc {
	return &testutil.FakeDataproc{JobStates: states}
}

func fakeAWS() *testutil.FakeAWS {
	return &testutil.FakeAWS{
		StepState: emrtypes.StepStateCompleted,
		RunState:  emrsltypes.JobRunStateSuccess,
		GlueState: gluetypes.JobRunStateRunning,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jobConfig(taskID, jobID string) types.SensorConfig {
	return types.SensorConfig{
		TaskID:       taskID,
		Type:         types.SensorDataprocJob,
		Region:       "us-central1",
		ProjectID:    "analytics",
		JobID:        jobID,
		PokeInterval: types.Duration(5 * time.Millisecond),
		Timeout:      types.Duration(5 * time.Second),
	}
}

func TestRunner_Build_UnknownType(t *testing.T) {
	r := NewRunner()
	s, err := r.Build(types.SensorConfig{TaskID: "t", Type: "airflow-dag"})
	assert.Nil(t, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sensor type")
}

func TestRunner_Build_UnknownConnection(t *testing.T) {
	r := NewRunner(WithConnections([]types.Connection{{ID: "gcp", Type: types.ConnectionGCP}}))
	cfg := jobConfig("t", "j")
	cfg.ConnectionID = "other"

	_, err := r.Build(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown connection "other"`)
}

func TestRunner_Build_InvalidConfig(t *testing.T) {
	r := NewRunner(WithDataprocClient(fakeDataproc(nil)))
	cfg := jobConfig("t", "j")
	cfg.Region = ""

	s, err := r.Build(cfg)
	assert.Nil(t, s, "a failed build must return an untyped nil sensor")
	assert.ErrorIs(t, err, sensor.ErrInvalidConfig)
}

func TestRunner_Build_Dispatch(t *testing.T) {
	aws := fakeAWS()
	r := NewRunner(
		WithDataprocClient(fakeDataproc(nil)),
		WithEMRClient(aws),
		WithEMRServerlessClient(aws),
		WithGlueClient(aws),
	)

	cfgs := []types.SensorConfig{
		jobConfig("job", "j"),
		{TaskID: "batch", Type: types.SensorDataprocBatch, Region: "r", ProjectID: "p", BatchID: "b"},
		{TaskID: "step", Type: types.SensorEMRStep, Region: "r", ClusterID: "c", StepID: "s"},
		{TaskID: "sl", Type: types.SensorEMRServerlessJob, Region: "r", ApplicationID: "a", JobRunID: "j"},
		{TaskID: "glue", Type: types.SensorGlueJob, Region: "r", JobName: "n", RunID: "x"},
	}
	for _, cfg := range cfgs {
		t.Run(string(cfg.Type), func(t *testing.T) {
			s, err := r.Build(cfg)
			require.NoError(t, err)
			assert.Equal(t, cfg.TaskID, s.TaskID())
			assert.Equal(t, cfg.Type, s.Type())
		})
	}
}

func TestRunner_Build_DefaultHooks(t *testing.T) {
	r := NewRunner(WithConnections([]types.Connection{
		{ID: "gcp", Type: types.ConnectionGCP, Endpoint: "localhost:1"},
		{ID: "aws", Type: types.ConnectionAWS, Profile: "test"},
	}))

	cfg := jobConfig("job", "j")
	cfg.ConnectionID = "gcp"
	s, err := r.Build(cfg)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = r.Build(types.SensorConfig{TaskID: "glue", Type: types.SensorGlueJob, ConnectionID: "aws", Region: "r", JobName: "n", RunID: "x"})
	require.NoError(t, err)

	assert.Len(t, r.dataprocHook, 1)
	assert.Len(t, r.awsHook, 1)
	assert.NoError(t, r.Close())
}

func TestRunner_Build_ProjectFromConnection(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING},
	})
	r := NewRunner(
		WithConnections([]types.Connection{{ID: "gcp", Type: types.ConnectionGCP, ProjectID: "conn-project"}}),
		WithDataprocClient(dp),
		WithLogger(quietLogger()),
	)

	cfg := jobConfig("t", "j")
	cfg.ConnectionID = "gcp"
	cfg.ProjectID = ""
	_, err := r.Poke(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "conn-project", dp.Project("j"))

	cfg.ProjectID = "own-project"
	_, err = r.Poke(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "own-project", dp.Project("j"), "the sensor's projectId wins")

	cfg.ConnectionID = ""
	cfg.ProjectID = ""
	_, err = r.Build(cfg)
	assert.ErrorIs(t, err, sensor.ErrInvalidConfig, "no project anywhere")
}

func TestRunner_Poke(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	state, err := r.Poke(context.Background(), jobConfig("t", "j"))
	require.NoError(t, err)
	assert.Equal(t, types.PokeRunning, state)

	state, err = r.Poke(context.Background(), types.SensorConfig{Type: "bogus"})
	require.Error(t, err)
	assert.Equal(t, types.PokeError, state)
}

func TestRunner_Wait_Done(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_PENDING, dataprocpb.JobStatus_RUNNING, dataprocpb.JobStatus_DONE},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	require.NoError(t, r.Wait(context.Background(), jobConfig("t", "j")))
	assert.Equal(t, 3, dp.Calls("j"))
}

func TestRunner_Wait_TerminalFailure(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING, dataprocpb.JobStatus_ERROR},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	err := r.Wait(context.Background(), jobConfig("t", "j"))
	var terr *sensor.TerminalError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "Job failed", terr.Reason)
	assert.Equal(t, 2, dp.Calls("j"))
}

func TestRunner_Wait_Timeout(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	cfg := jobConfig("wait-job", "j")
	cfg.Timeout = types.Duration(30 * time.Millisecond)

	err := r.Wait(context.Background(), cfg)
	var terr *SensorTimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "sensor wait-job timed out after 30ms", err.Error())
	assert.GreaterOrEqual(t, dp.Calls("j"), 2)
}

func TestRunner_Wait_ParentCancelled(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Wait(ctx, jobConfig("t", "j"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Wait_RecordsSpansAndMetrics(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"j": {dataprocpb.JobStatus_RUNNING, dataprocpb.JobStatus_DONE},
	})
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	rec, err := metrics.New(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	r := NewRunner(
		WithDataprocClient(dp),
		WithLogger(quietLogger()),
		WithTracerProvider(tp),
		WithMetrics(rec),
	)
	require.NoError(t, r.Wait(context.Background(), jobConfig("t", "j")))

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for _, sp := range spans {
		assert.Equal(t, "sensor.poke", sp.Name())
	}
	assert.Contains(t, spans[1].Attributes(), attribute.String("sensor.state", "done"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["jobsensor.pokes"])
	assert.True(t, names["jobsensor.waits"])
}

func TestRunner_WaitAll(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"a": {dataprocpb.JobStatus_RUNNING, dataprocpb.JobStatus_DONE},
		"b": {dataprocpb.JobStatus_DONE},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	err := r.WaitAll(context.Background(), []types.SensorConfig{
		jobConfig("task-a", "a"),
		jobConfig("task-b", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, dp.Calls("a"))
	assert.Equal(t, 1, dp.Calls("b"))
}

func TestRunner_WaitAll_FirstErrorWins(t *testing.T) {
	dp := fakeDataproc(map[string][]dataprocpb.JobStatus_State{
		"ok":  {dataprocpb.JobStatus_RUNNING},
		"bad": {dataprocpb.JobStatus_CANCELLED},
	})
	r := NewRunner(WithDataprocClient(dp), WithLogger(quietLogger()))

	err := r.WaitAll(context.Background(), []types.SensorConfig{
		jobConfig("task-ok", "ok"),
		jobConfig("task-bad", "bad"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sensor task-bad")

	var terr *sensor.TerminalError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Cancelled())
}
