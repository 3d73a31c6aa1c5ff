package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/jobsensor/internal/config"
)

const starterConfig = `# Connections are optional; sensors without connectionId use ambient credentials.
connections:
  - id: gcp-default
    type: gcp
    projectId: my-project # default for sensors without projectId
    # credentialsFile: /path/to/service-account.json
    breaker:
      failThreshold: 5
      cooldown: 30s
  - id: aws-default
    type: aws
    # profile: data-platform

sensors:
  - taskId: wait-dataproc-job
    type: dataproc-job
    connectionId: gcp-default
    region: us-central1
    projectId: my-project
    jobId: my-job-id
    waitTimeout: 5m
    pokeInterval: 60s
    timeout: 6h

  - taskId: wait-dataproc-batch
    type: dataproc-batch
    connectionId: gcp-default
    region: us-central1
    batchId: my-batch-id

  - taskId: wait-glue-run
    type: glue-job
    connectionId: aws-default
    region: us-east-1
    jobName: my-glue-job
    runId: jr_0123456789
`

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [project-dir]",
		Short: "Write a starter " + config.FileName,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing "+config.FileName)
	return cmd
}

func runInit(dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, config.FileName)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	color.Green("  ✓ Wrote %s", path)
	fmt.Println()
	_, _ = color.New(color.Bold).Println("Next steps:")
	fmt.Printf("  edit %s\n", path)
	fmt.Printf("  jobsensor validate --dir %s\n", dir)
	fmt.Printf("  jobsensor wait --all --dir %s\n", dir)
	return nil
}
