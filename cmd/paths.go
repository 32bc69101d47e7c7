package cmd

import (
	"fmt"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the paths used by telemetry.
type PathsOutput struct {
	ConfigDir   string `json:"config_dir"`
	StateDir    string `json:"state_dir"`
	LogsDir     string `json:"logs_dir"`
	ProjectsDir string `json:"projects_dir"`
	Socket      string `json:"socket"`
	PidFile     string `json:"pid_file"`
}

// NewPathsCmd returns the paths command.
func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by telemetry",
		Long: `Print the paths used by telemetry as JSON.

- config_dir: telemetry.yml / telemetry.toml
- state_dir: logs and the daemon pid file
- projects_dir: one transcript directory per encoded project path
- socket: the daemon's unix socket`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			output := PathsOutput{
				ConfigDir:   paths.ConfigDir(),
				StateDir:    paths.StateDir(),
				LogsDir:     paths.LogsDir(),
				ProjectsDir: cfg.ProjectsDir,
				Socket:      cfg.Daemon.Socket,
				PidFile:     paths.PidFilePath(),
			}
			if err := cli.PrintJSON(cmd.OutOrStdout(), output); err != nil {
				return fmt.Errorf("failed to write paths: %w", err)
			}
			return nil
		},
	}
}
