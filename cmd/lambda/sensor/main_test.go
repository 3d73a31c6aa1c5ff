package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	emrtypes "github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/dwsmith1983/jobsensor/internal/runner"
	"github.com/dwsmith1983/jobsensor/internal/sensorapi"
	"github.com/dwsmith1983/jobsensor/internal/telemetry"
	"github.com/dwsmith1983/jobsensor/internal/testutil"
	"github.com/dwsmith1983/jobsensor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exp := tracetest.NewInMemoryExporter()
	tel := telemetry.NewSDK(
		sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())),
		sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Hour))),
	)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	depsOnce.Do(func() {
		deps = &sensorapi.Deps{
			Runner: runner.NewRunner(
				runner.WithEMRClient(&testutil.FakeAWS{StepState: emrtypes.StepStateCompleted}),
				runner.WithLogger(logger),
				runner.WithTracerProvider(tel.Tracer),
			),
			Project: &types.ProjectConfig{Sensors: []types.SensorConfig{{
				TaskID:    "wait-step",
				Type:      types.SensorEMRStep,
				Region:    "us-east-1",
				ClusterID: "j-1",
				StepID:    "s-1",
			}}},
			Telemetry: tel,
			Logger:    logger,
		}
	})

	resp, err := handler(context.Background(), sensorapi.PokeRequest{TaskID: "wait-step"})
	require.NoError(t, err)
	assert.Equal(t, types.PokeDone, resp.State)
	assert.True(t, resp.Done)

	spans := exp.GetSpans()
	require.Len(t, spans, 1, "the poke span is exported before the handler returns")
	assert.Equal(t, "sensor.poke", spans[0].Name)
}
