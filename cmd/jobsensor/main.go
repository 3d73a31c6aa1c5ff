package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobsensor/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "jobsensor",
		Short: "Wait for Dataproc, EMR and Glue jobs to finish",
		Long: `jobsensor pokes remote data-processing jobs until they reach a terminal state.
Sensors are declared in jobsensor.yaml; each poke makes one read-only API call
and reports running, done, failed or cancelled.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.AddGlobalFlags(root)

	root.AddCommand(
		commands.NewInitCmd(),
		commands.NewValidateCmd(),
		commands.NewPokeCmd(),
		commands.NewWaitCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
