package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facelocker/internal/config"
	"github.com/saturnino-fabrica-de-software/facelocker/internal/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Apply pending Postgres migrations, or create the SQLite tables when the
sqlite driver is configured.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		status, err := database.MigrateUp(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "postgres schema at version %d\n", status.Version)
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, newLogger(cmd))
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema ready at %s\n", cfg.SQLitePath)
	default:
		return fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
	return nil
}
