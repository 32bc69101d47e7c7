package cmd

import (
	"fmt"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewUsageCmd returns the usage command.
func NewUsageCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token usage and cost per day and project",
		Long: `Show token usage and cost per day and project, newest day first.

Examples:
  telemetry usage
  telemetry usage --days 7
  telemetry usage --days 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if !cmd.Flags().Changed("days") {
				days = cfg.Usage.WindowDays
			}
			span := profiling.Start("usage.aggregate")
			report, err := client.Usage(cmd.Context(), days)
			span.Stop()
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), report)
			}
			if len(report.Entries) == 0 {
				return nil
			}

			rows := make([][]string, 0, len(report.Entries)+1)
			for _, e := range report.Entries {
				rows = append(rows, []string{
					e.Date,
					e.ProjectName,
					fmt.Sprint(e.SessionCount),
					formatTokens(e.InputTokens),
					formatTokens(e.OutputTokens),
					fmt.Sprintf("$%.2f", e.CostUSD),
				})
			}
			tot := report.Totals
			rows = append(rows, []string{
				"total", "",
				fmt.Sprint(tot.SessionCount),
				formatTokens(tot.InputTokens),
				formatTokens(tot.OutputTokens),
				fmt.Sprintf("$%.2f", tot.CostUSD),
			})
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewTable(
				[]string{"DATE", "PROJECT", "SESSIONS", "INPUT", "OUTPUT", "COST"}, rows, 2, 3, 4, 5))
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "Days to include (0 means all time)")
	return cmd
}

func formatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprint(n)
	}
}
