package cmd

import (
	"fmt"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/timeline"
	"github.com/spf13/cobra"
)

// NewProjectsCmd returns the projects command.
func NewProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with transcripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projects, err := client.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), projects)
			}
			if len(projects) == 0 {
				return nil
			}

			short := timeline.NewShortener("")
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				path := short.Shorten(p.Path)
				if !p.Verified {
					path += " " + cli.DefaultTheme.Muted.Render("(unverified)")
				}
				rows = append(rows, []string{p.Name(), path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.NewTable([]string{"PROJECT", "PATH"}, rows))
			return nil
		},
	}
}
