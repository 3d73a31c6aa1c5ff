// Package commands implements the CLI subcommands for the jobsensor binary.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobsensor/internal/config"
	"github.com/dwsmith1983/jobsensor/internal/metrics"
	"github.com/dwsmith1983/jobsensor/internal/runner"
	"github.com/dwsmith1983/jobsensor/internal/sensorapi"
	"github.com/dwsmith1983/jobsensor/internal/telemetry"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// AddGlobalFlags registers the flags every subcommand reads.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("dir", ".", "Directory containing "+config.FileName)
	root.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}

// env is what a command needs to talk to the cloud APIs.
type env struct {
	project *types.ProjectConfig
	runner  *runner.Runner
	logger  *slog.Logger
	close   func()
}

func setup(cmd *cobra.Command) (*env, error) {
	dir, _ := cmd.Flags().GetString("dir")
	levelName, _ := cmd.Flags().GetString("log-level")

	project, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := sensorapi.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	tel, err := telemetry.Setup(cmd.Context(), "jobsensor-cli")
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	rec, err := metrics.New(tel.Meter)
	if err != nil {
		return nil, err
	}

	r := runner.NewRunner(
		runner.WithConnections(project.Connections),
		runner.WithLogger(logger),
		runner.WithMetrics(rec),
		runner.WithTracerProvider(tel.Tracer),
	)
	return &env{
		project: project,
		runner:  r,
		logger:  logger,
		close: func() {
			if err := r.Close(); err != nil {
				logger.Warn("closing clients", "error", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(ctx); err != nil {
				logger.Warn("flushing telemetry", "error", err)
			}
		},
	}, nil
}

// selectSensors returns the named sensors, or every sensor when all is set.
func selectSensors(project *types.ProjectConfig, names []string, all bool) ([]types.SensorConfig, error) {
	if all {
		if len(names) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with task names")
		}
		return project.Sensors, nil
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("name at least one task, or pass --all")
	}
	out := make([]types.SensorConfig, 0, len(names))
	for _, n := range names {
		s, ok := project.Sensor(n)
		if !ok {
			return nil, fmt.Errorf("unknown task %q", n)
		}
		out = append(out, s)
	}
	return out, nil
}

// stateString colors a poke state for terminal output.
func stateString(s types.PokeState) string {
	switch s {
	case types.PokeDone:
		return color.GreenString("DONE")
	case types.PokeRunning:
		return color.YellowString("RUNNING")
	case types.PokeTimeout:
		return color.MagentaString("TIMEOUT")
	default:
		return color.RedString("%s", strings.ToUpper(string(s)))
	}
}
