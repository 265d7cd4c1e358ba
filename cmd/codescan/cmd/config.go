package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configCmd prints the effective configuration after merging defaults,
// config file, environment variables and flags.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML after merging defaults,
the configuration file, environment variables and command-line flags.

Examples:
  codescan config
  codescan config --config ./codescan.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}

		if file := GetConfigLoader().GetConfigFileUsed(); file != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# config file: %s\n", file)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
