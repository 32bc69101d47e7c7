package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/daemon"
	"github.com/grovetools/telemetry/pkg/models"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/spf13/cobra"
)

// NewLiveCmd returns the live command.
func NewLiveCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "live",
		Short: "List running assistant sessions",
		Long: `List running assistant sessions with their project and the label of the
transcript they are writing.

With --watch the list is redrawn whenever it changes: from the daemon's
update stream when it is running, otherwise by polling.

Examples:
  telemetry live
  telemetry live --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			jsonOut := cli.GetOptions(cmd).JSONOutput
			out := cmd.OutOrStdout()
			render := func(sessions []models.ActiveSession) error {
				if jsonOut {
					return cli.PrintJSON(out, sessions)
				}
				if watch && cli.IsTerminal(out) {
					fmt.Fprint(out, "\033[H\033[2J")
				}
				printLive(out, sessions)
				return nil
			}

			if !watch {
				sessions, err := client.Live(cmd.Context())
				if err != nil {
					return err
				}
				return render(sessions)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			if client.IsRunning() {
				return watchStream(ctx, client, render)
			}
			return watchPoll(ctx, client, cfg.Live.PollInterval.Std(), render)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Redraw whenever the live sessions change")
	return cmd
}

func watchStream(ctx context.Context, client daemon.Client, render func([]models.ActiveSession) error) error {
	updates, err := client.StreamState(ctx)
	if err != nil {
		return err
	}
	for u := range updates {
		if u.UpdateType != "initial" && u.UpdateType != "live" {
			continue
		}
		if err := render(u.Live); err != nil {
			return err
		}
	}
	return nil
}

func watchPoll(ctx context.Context, client daemon.Client, interval time.Duration, render func([]models.ActiveSession) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		sessions, err := client.Live(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := render(sessions); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printLive(w io.Writer, sessions []models.ActiveSession) {
	t := cli.DefaultTheme
	if len(sessions) == 0 {
		fmt.Fprintln(w, t.Muted.Render("No running sessions"))
		return
	}
	short := timeline.NewShortener("")
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		label := t.Muted.Render("-")
		if s.HasLabel() {
			label = timeline.Truncate(*s.SessionLabel, 48)
		}
		rows = append(rows, []string{
			fmt.Sprint(s.PID),
			s.ProjectName,
			short.Shorten(s.ProjectPath),
			formatDuration(time.Since(s.StartTime)),
			label,
		})
	}
	fmt.Fprintln(w, cli.NewTable([]string{"PID", "PROJECT", "PATH", "UP", "SESSION"}, rows, 0, 3))
}
