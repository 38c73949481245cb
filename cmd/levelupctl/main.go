// Command levelupctl runs operational tasks against the Level-Up Gamer data store.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joao-fontenele/levelup-gamer/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "levelupctl",
		Short:         "Level-Up Gamer operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var postgresURL string
	root.PersistentFlags().StringVar(&postgresURL, "postgres-url", "", "database URL (defaults to POSTGRES_URL)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(logger, "")
		if err != nil {
			return nil, err
		}
		if postgresURL != "" {
			cfg.Postgres.URL = postgresURL
		}
		return cfg, nil
	}

	root.AddCommand(newMigrateCmd(logger, load), newSeedCmd(logger, load))
	return root
}
