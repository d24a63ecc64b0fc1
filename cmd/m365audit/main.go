// m365audit audits Microsoft 365 license spend: it collects license and
// sign-in data from the Graph API into SQLite, cross-references the ADP
// roster, and renders a cost dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"m365audit/internal/config"
	"m365audit/internal/logging"
)

var (
	// Global flags
	verbose bool
	cfgPath string
	dbPath  string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "m365audit",
	Short: "Microsoft 365 license cost auditing",
	Long: `m365audit collects Microsoft 365 license inventory, per-user license
assignments, and sign-in activity into a local SQLite database, then reports
on cost: total spend, unassigned seats, and licenses held by inactive or
terminated users.

Typical workflow:
  m365audit collect            # pull data from the Graph API
  m365audit import-adp <xlsx>  # optional: import the HR roster
  m365audit dashboard          # render the HTML cost dashboard`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPath != "" {
			cfg.Storage.DatabasePath = dbPath
		}

		if err := logging.Initialize(cfg.StateDir(), verbose || cfg.Logging.Debug, cfg.Logging.Level); err != nil {
			logger.Warn("category logging disabled", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides config)")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(importADPCmd)
	rootCmd.AddCommand(updatePricingCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
