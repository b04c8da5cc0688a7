package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vytor/openingtiers/internal/config"
	"github.com/vytor/openingtiers/internal/logger"
)

var (
	configFile string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tierlist",
	Short: "Chess opening tier list server and data pipeline",
	Long: `Collects opening statistics from the Lichess opening explorer, stores
them in SQLite and serves a filterable, editable tier list.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log := logger.New(
			logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
			logger.WithFormat(cfg.LogFormat),
		)
		logger.SetDefault(log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json or toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
