package commands

import (
	"context"
	"log/slog"
	"os"

	"monthlydata/internal/app"
	"monthlydata/internal/config"
	"monthlydata/internal/logging"
	"monthlydata/internal/printer"

	"github.com/spf13/cobra"
)

var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "monthlyctl",
	Short: "Administer the monthly records backend",
	Long: `monthlyctl manages users and bulk-loads monthly records against the same
database the API server uses. Configuration comes from the environment and an
optional .env file (DB_DSN, DATA_BACKEND, ADMIN_PASSWORD, ...).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadDotEnv()
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return printer.Error("Invalid configuration", err.Error(), []string{"Check your environment or .env file."})
		}
		slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	// Errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// openApp connects to the configured backend. Callers must close the store.
func openApp(ctx context.Context) (*app.App, error) {
	if cfg.DataBackend == "memory" {
		printer.Warning("DATA_BACKEND=memory: changes are discarded when the command exits\n")
	}
	a, err := app.Bootstrap(ctx, cfg, false)
	if err != nil {
		return nil, printer.Error("Cannot open the data store", err.Error(), []string{"Make sure DB_DSN points at a reachable Postgres database."})
	}
	return a, nil
}
