package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/newstrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or print configuration",
	Long: `Manage the bot configuration.

Subcommands:
  init     - Write the default configuration
  validate - Check a configuration file
  show     - Print the effective configuration after .env and environment overrides

Examples:
  newstrader config init -o newstrader.yaml
  newstrader config validate -f newstrader.yaml
  newstrader config show`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().SaveToFile(configInitOutput); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\nSet OANDA_TOKEN and OANDA_ACCOUNT in .env before using the oanda or paper broker.\n", configInitOutput)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(configValidatePath)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: broker %s, mode %s, policy %s, journal %s\n",
			configValidatePath, cfg.Broker.Kind, cfg.Strategy.Mode, cfg.Strategy.Policy, cfg.Journal.Type)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Broker.Token != "" {
			cfg.Broker.Token = "********"
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	},
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd, configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "newstrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}
