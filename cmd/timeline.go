package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/spf13/cobra"
)

// NewTimelineCmd returns the timeline command.
func NewTimelineCmd() *cobra.Command {
	var (
		filter string
		limit  int
		follow bool
		poll   bool
	)
	cmd := &cobra.Command{
		Use:   "timeline <session> [project]",
		Short: "Show the actions of a session",
		Long: `Show the file edits, commands and messages of one session in order.
The project defaults to the current directory.

Examples:
  telemetry timeline 0b6c1f9e-7c1a-4f57-9a53-2b1f0f1d2c3e
  telemetry timeline 0b6c1f9e --filter commands --cap 100
  telemetry timeline 0b6c1f9e --follow`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := projectArg(args, 1)
			if err != nil {
				return err
			}
			f, err := timeline.ParseFilter(filter)
			if err != nil {
				return err
			}
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			tl, err := client.Timeline(cmd.Context(), daemon.TimelineQuery{
				Project: project,
				Session: args[0],
				Filter:  string(f),
				Cap:     limit,
			})
			if err != nil {
				return err
			}

			jsonOut := cli.GetOptions(cmd).JSONOutput
			out := cmd.OutOrStdout()
			if jsonOut && !follow {
				return cli.PrintJSON(out, tl)
			}
			if !jsonOut {
				printTimeline(out, tl)
			}
			if !follow {
				return nil
			}

			backend, err := daemon.NewBackend(cfg, cli.GetLogger(cmd))
			if err != nil {
				return err
			}
			file, err := backend.Store.Find(project, args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			actions, err := backend.Timeline.Parser().Follow(ctx, file.FilePath, timeline.FollowOptions{
				Poll:   poll,
				Filter: f,
			})
			if err != nil {
				return err
			}
			for a := range actions {
				if jsonOut {
					if err := cli.PrintJSON(out, a); err != nil {
						return err
					}
					continue
				}
				printAction(out, a)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "Actions to show: files, commands, text, all")
	cmd.Flags().IntVar(&limit, "cap", 0, "Maximum actions to parse (0 uses the configured cap)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing actions as the transcript grows")
	cmd.Flags().BoolVar(&poll, "poll", false, "Follow by polling instead of inotify")
	return cmd
}

func printTimeline(w io.Writer, tl *models.SessionTimeline) {
	t := cli.DefaultTheme
	header := fmt.Sprintf("%s  %s  %d actions", tl.SessionID,
		tl.StartTime.Local().Format("2006-01-02 15:04"), tl.ActionCount)
	fmt.Fprintln(w, t.Bold.Render(header))
	if tl.Label != "" {
		fmt.Fprintln(w, t.Italic.Render(tl.Label))
	}
	for _, a := range tl.Actions {
		printAction(w, a)
	}
	if tl.Truncated {
		fmt.Fprintln(w, t.Muted.Render("(truncated; raise --cap to see more)"))
	}
}

func printAction(w io.Writer, a models.TimelineAction) {
	t := cli.DefaultTheme
	kind := lipgloss.NewStyle().Width(10).Foreground(kindColor(a.Kind)).Render(string(a.Kind))
	line := a.Description
	if a.Kind == models.ActionCommand && a.Detail != "" {
		line += "  " + t.Muted.Render(a.Detail)
	}
	fmt.Fprintf(w, "%s %s %s\n", t.Muted.Render(a.Timestamp.Local().Format("15:04:05")), kind, line)
}

func kindColor(k models.ActionKind) lipgloss.TerminalColor {
	c := cli.DefaultTheme.Colors
	switch k {
	case models.ActionFileRead:
		return c.Blue
	case models.ActionFileWrite, models.ActionFileEdit:
		return c.Green
	case models.ActionCommand:
		return c.Yellow
	case models.ActionError:
		return c.Red
	default:
		return c.Muted
	}
}
