package cli

import (
	"fmt"

	"github.com/grovetools/telemetry/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates a standard version command. --json prints the
// build info as JSON.
func NewVersionCommand(componentName string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: fmt.Sprintf("Print the version number of %s", componentName),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			if GetOptions(cmd).JSONOutput {
				return PrintJSON(cmd.OutOrStdout(), info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", componentName, info.Version)
			if info.Commit != "" {
				commit := info.Commit
				if info.Modified {
					commit += " (modified)"
				}
				fmt.Fprintf(out, "  commit:   %s\n", commit)
			}
			if info.BuildDate != "" {
				fmt.Fprintf(out, "  built:    %s\n", info.BuildDate)
			}
			fmt.Fprintf(out, "  go:       %s %s\n", info.GoVersion, info.Platform)
			return nil
		},
	}
}
