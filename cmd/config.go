package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/evelog/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after merging the config file, environment
variables and flags, with defaults applied.

Examples:
  evelog config show
  evelog config show -c evelog.yaml --sink redis`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		data, err := config.Render(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration without starting anything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("INVALID: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "VALID: sink %s, metadata %t, community id %t\n",
			cfg.EveLog.Kind, cfg.EveLog.Metadata, cfg.EveLog.CommunityID)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}
