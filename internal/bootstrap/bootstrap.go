// Package bootstrap holds the wiring shared by the CLI commands.
package bootstrap

import (
	"fmt"

	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/db"
	"github.com/jmehdipour/contact-desk/internal/logger"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Load reads the root --config and --env-file flags, loads the config and
// initializes the process logger.
func Load(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	flags := cmd.Root().PersistentFlags()
	cfgPath, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(cfgPath, envFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Log = lg
	return cfg, lg, nil
}

func OpenMySQL(cfg config.Config) (*sqlx.DB, error) {
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOptsFrom(cfg.MySQL))
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	return dbx, nil
}

// ContactService builds the contact service over MySQL. n may be nil.
func ContactService(cfg config.Config, dbx *sqlx.DB, n contact.Notifier, lg *zap.Logger) *contact.Service {
	return contact.New(repository.NewContactsRepository(dbx), n, lg.Named("contact"), cfg.Store.Timeout)
}
