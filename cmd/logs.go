package cmd

import (
	"fmt"
	"io"
	stdlog "log"
	"os"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/logging/logutil"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// NewLogsCmd returns the logs command.
func NewLogsCmd() *cobra.Command {
	var (
		follow    bool
		component string
		showPath  bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the daemon's log file",
		Long: `Print the newest log file of a telemetry component.

Examples:
  telemetry logs -f
  telemetry logs --component telemetry-cli --path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			path, err := logutil.FindLogFile(cfg, component)
			if err != nil {
				return err
			}
			if showPath {
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			if !follow {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				_, err = io.Copy(cmd.OutOrStdout(), f)
				return err
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow: true,
				ReOpen: true,
				Logger: stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return err
			}
			defer t.Cleanup()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return t.Stop()
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					if line.Err != nil {
						return line.Err
					}
					fmt.Fprintln(cmd.OutOrStdout(), line.Text)
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&component, "component", "telemetryd", "Component whose log to show")
	cmd.Flags().BoolVar(&showPath, "path", false, "Print the log file path only")
	return cmd
}
