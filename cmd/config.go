package cmd

import (
	"fmt"

	"github.com/grovetools/telemetry/cli"
	"github.com/grovetools/telemetry/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd returns the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Display the merged configuration",
		Long: `Shows the configuration after merging layers:
1. Defaults
2. Global config (~/.config/grove/telemetry.yml)
3. Explicit config (--config)
4. Override files (telemetry.override.yml next to the explicit config)
This is useful for debugging configuration issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), cfg)
			}
			if global := config.FindConfigFile(); global != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# Global: %s\n", global)
			}
			if explicit := cli.GetOptions(cmd).ConfigFile; explicit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# Explicit: %s\n", explicit)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})
	return cmd
}
