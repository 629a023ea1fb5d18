package cli

import (
	"context"
	"fmt"

	"github.com/geocoder89/pricetracker/internal/config"
	"github.com/geocoder89/pricetracker/internal/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pricetracker",
		Short:         "Price tracker API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedAdminCmd())

	return cmd
}

// loadConfig reads the environment and rejects unsafe settings.
func loadConfig() (config.Config, error) {
	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func openPool(ctx context.Context, cfg config.Config, appName string) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DBURL, db.PoolOptions{
		MaxConns:        int32(cfg.DBMaxConns),
		ApplicationName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}
