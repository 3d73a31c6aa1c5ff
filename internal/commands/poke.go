package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobsensor/internal/sensor"
)

const pokeTimeout = 60 * time.Second

// NewPokeCmd creates the poke command.
func NewPokeCmd() *cobra.Command {
	var startedAt string

	cmd := &cobra.Command{
		Use:   "poke <task>",
		Short: "Poke a sensor once and print its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoke(cmd, args[0], startedAt)
		},
	}
	cmd.Flags().StringVar(&startedAt, "started-at", "", "RFC 3339 time the wait began (for the dataproc job wait timeout)")
	return cmd
}

func runPoke(cmd *cobra.Command, taskID, startedAt string) error {
	var opts []sensor.Option
	if startedAt != "" {
		t, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return fmt.Errorf("invalid --started-at: %w", err)
		}
		opts = append(opts, sensor.WithStartTime(t))
	}

	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	cfg, ok := e.project.Sensor(taskID)
	if !ok {
		return fmt.Errorf("unknown task %q", taskID)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pokeTimeout)
	defer cancel()

	state, err := e.runner.Poke(ctx, cfg, opts...)
	fmt.Printf("%s  %s\n", cfg.TaskID, stateString(state))
	return err
}
