package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"riderhub/internal/infra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded PostgreSQL schema to db.dsn",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.DB.DSN == "" {
			return errors.New("db.dsn is not set")
		}
		ctx := context.Background()
		db, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := infra.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
