package cmd

import (
	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the telemetry command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"telemetry",
		"Session telemetry for coding assistant transcripts",
	)
	root.Long = `Reads the transcripts a coding assistant writes per project to show
session timelines, token usage and cost, and which sessions are running now.
A daemon keeps that state fresh and hosts pseudo-terminal sessions.`

	root.AddCommand(NewEncodeCmd())
	root.AddCommand(NewDecodeCmd())
	root.AddCommand(NewProjectsCmd())
	root.AddCommand(NewSessionsCmd())
	root.AddCommand(NewTimelineCmd())
	root.AddCommand(NewUsageCmd())
	root.AddCommand(NewLiveCmd())
	root.AddCommand(NewPtyCmd())
	root.AddCommand(NewDaemonCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(NewLogsCmd())
	root.AddCommand(cli.NewVersionCommand("telemetry"))

	profiling.NewCobraProfiler().AddFlags(root)
	cli.ApplyStyledHelpRecursive(root)
	return root
}
