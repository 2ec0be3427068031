package main

import (
	"log/slog"

	"moviestore/internal/config"
	"moviestore/internal/infra/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users table (and the purchase ledger tables for the postgres ledger)",
	RunE: func(cmd *cobra.Command, args []string) error {
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return err
		}

		withLedger := cfg.LedgerDriver == config.LedgerPostgres
		if err := db.Migrate(gormDB, withLedger); err != nil {
			return err
		}
		slog.Info("migrated", "ledger_tables", withLedger)
		return nil
	},
}
