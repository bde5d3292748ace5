package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/contact-desk/internal/bootstrap"
	"github.com/jmehdipour/contact-desk/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := bootstrap.Load(cmd)
		if err != nil {
			return err
		}

		sqlDB, err := bootstrap.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := db.Migrate(context.Background(), sqlDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		lg.Info("migration complete")
		return nil
	},
}
