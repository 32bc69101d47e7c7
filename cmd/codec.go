package cmd

import (
	"fmt"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/pkg/pathcodec"
	"github.com/spf13/cobra"
)

// NewEncodeCmd returns the encode command.
func NewEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <path>",
		Short: "Print the transcript directory name of a project path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := pathcodec.Encode(args[0])
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), map[string]string{"path": args[0], "name": name})
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

// NewDecodeCmd returns the decode command.
func NewDecodeCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "decode <name>",
		Short: "Reconstruct the project path of a transcript directory name",
		Long: `Reconstruct the project path of a transcript directory name.

Names are ambiguous when directory names contain the delimiter, so candidates
are checked against the filesystem. Without a match the naive reconstruction
is printed and marked unverified. Names start with the delimiter, so pass
them after "--".

Examples:
  telemetry decode -- -home-me-src-my-app
  telemetry decode --strict -- -home-me-src-my-app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := pathcodec.New()
			res := codec.Decode(args[0])
			if strict && !res.Verified {
				_, err := codec.DecodeStrict(args[0])
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), res)
			}
			if res.Verified {
				fmt.Fprintln(cmd.OutOrStdout(), res.Path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", res.Path, cli.DefaultTheme.Muted.Render("(unverified)"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when no reconstruction exists on disk")
	return cmd
}
