package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/newstrader/config"
	"github.com/rustyeddy/newstrader/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "newstrader",
	Short: "Trade FX around high-impact economic news",
	Long: `Newstrader watches the weekly ForexFactory calendar and, a few minutes
after each high-impact release, opens a volatility-sized position on the
most trending instrument for the news currency, protected by a grid of
averaging orders and a hedge.

It provides tools for:
  - Running the news bot against OANDA or the built-in simulator
  - Fetching and inspecting the weekly calendar
  - Querying the run and order journal
  - Closing positions by hand`,
	SilenceUsage: true,
}

var (
	cfgFile string
	envFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "newstrader.yaml", "config file (YAML or JSON); defaults apply when missing")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with OANDA credentials")
}

// loadConfig reads the config file when it exists, applies the environment
// and validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}
