package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/profiling"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/spf13/cobra"
)

// NewSessionsCmd returns the sessions command.
func NewSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions [project]",
		Short: "List the sessions of a project, newest first",
		Long: `List the sessions of a project, newest first. The project defaults to the
current directory.

Examples:
  telemetry sessions
  telemetry sessions ~/src/app --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectArg(args, 0)
			if err != nil {
				return err
			}
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			span := profiling.Start("sessions.summarize")
			sessions, err := client.Sessions(cmd.Context(), project)
			span.Stop()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), sessions)
			}
			if len(sessions) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.SessionID,
					s.StartTime.Local().Format("2006-01-02 15:04"),
					formatDuration(s.Duration()),
					strconv.Itoa(s.ActionCount),
					timeline.Truncate(s.Label, 48),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewTable(
				[]string{"SESSION", "STARTED", "DURATION", "ACTIONS", "LABEL"}, rows, 3))
			return nil
		},
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
