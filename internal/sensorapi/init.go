package sensorapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dwsmith1983/jobsensor/internal/config"
	"github.com/dwsmith1983/jobsensor/internal/metrics"
	"github.com/dwsmith1983/jobsensor/internal/runner"
	"github.com/dwsmith1983/jobsensor/internal/telemetry"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// Deps holds shared dependencies for the poke handlers.
type Deps struct {
	Runner    *runner.Runner
	Project   *types.ProjectConfig // nil when CONFIG_DIR is unset
	Telemetry *telemetry.Providers
	Logger    *slog.Logger
}

// Init creates shared dependencies from environment variables.
// Reads: CONFIG_DIR, LOG_LEVEL, OTEL_SERVICE_NAME and the OTEL_EXPORTER_OTLP_* variables.
func Init(ctx context.Context) (*Deps, error) {
	level, err := ParseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	var project *types.ProjectConfig
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		project, err = config.Load(dir)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", dir, err)
		}
	}

	tel, err := telemetry.Setup(ctx, envOrDefault("OTEL_SERVICE_NAME", "jobsensor"))
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	rec, err := metrics.New(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	opts := []runner.RunnerOption{
		runner.WithLogger(logger),
		runner.WithMetrics(rec),
		runner.WithTracerProvider(tel.Tracer),
	}
	if project != nil {
		opts = append(opts, runner.WithConnections(project.Connections))
	}

	return &Deps{
		Runner:    runner.NewRunner(opts...),
		Project:   project,
		Telemetry: tel,
		Logger:    logger,
	}, nil
}

// Flush exports the telemetry recorded while handling a request. Failures are
// logged, not returned.
func (d *Deps) Flush(ctx context.Context) {
	if err := d.Telemetry.ForceFlush(ctx); err != nil {
		d.Logger.Warn("flushing telemetry", "error", err)
	}
}

// ParseLevel maps a LOG_LEVEL value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
