package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobsensor/internal/config"
	"github.com/dwsmith1983/jobsensor/internal/runner"
	"github.com/dwsmith1983/jobsensor/pkg/types"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check " + config.FileName + " and every sensor's required arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			project, err := config.Load(dir)
			if err != nil {
				return err
			}
			failed := validateSensors(project)
			if failed > 0 {
				return fmt.Errorf("%d of %d sensors are invalid", failed, len(project.Sensors))
			}
			color.Green("All %d sensors are valid.", len(project.Sensors))
			return nil
		},
	}
}

// validateSensors constructs every sensor without touching the network and
// prints one line per sensor. It returns the number of invalid sensors.
func validateSensors(project *types.ProjectConfig) int {
	r := runner.NewRunner(runner.WithConnections(project.Connections))
	defer func() { _ = r.Close() }()

	failed := 0
	for _, cfg := range project.Sensors {
		if _, err := r.Build(cfg); err != nil {
			failed++
			fmt.Printf("  %s %-30s %v\n", color.RedString("✗"), cfg.TaskID, err)
			continue
		}
		fmt.Printf("  %s %-30s %s\n", color.GreenString("✓"), cfg.TaskID, cfg.Type)
	}
	return failed
}
