package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewWaitCmd creates the wait command.
func NewWaitCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "wait [task...]",
		Short: "Poke sensors on their interval until they finish",
		Long: `Wait pokes each named sensor immediately and then every pokeInterval until
it succeeds, fails, or its timeout elapses. Several sensors are waited on
concurrently; the first failure cancels the rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(cmd, args, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Wait for every sensor in the config")
	return cmd
}

func runWait(cmd *cobra.Command, names []string, all bool) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	sensors, err := selectSensors(e.project, names, all)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	_, _ = bold.Printf("Waiting for %d sensor(s)\n", len(sensors))

	if err := e.runner.WaitAll(cmd.Context(), sensors); err != nil {
		fmt.Println(color.RedString("✗"), err)
		return err
	}
	fmt.Println(color.GreenString("✓"), "all sensors done")
	return nil
}
