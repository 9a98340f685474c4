package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/contacts/internal/config"
	"github.com/Skotchmaster/contacts/internal/repo"
	"github.com/Skotchmaster/contacts/pkg/db"
	"github.com/Skotchmaster/contacts/pkg/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logging.New(cfg.LogLevel)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close(gdb)

		if err := repo.Migrate(ctx, gdb); err != nil {
			return err
		}
		log.Info("migrate_done", "driver", cfg.DBDriver)
		return nil
	},
}
