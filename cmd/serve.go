package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/contact-desk/internal/bootstrap"
	"github.com/jmehdipour/contact-desk/internal/db"
	httpSrv "github.com/jmehdipour/contact-desk/internal/http"
	"github.com/jmehdipour/contact-desk/internal/http/middleware"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/service/outbox"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := bootstrap.Load(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = lg.Sync() }()

		mysqlDB, err := bootstrap.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		deps := httpSrv.Deps{Config: cfg, DB: mysqlDB, Log: lg, Notifies: true}

		if cfg.Redis.Addr != "" {
			redisClient, err := db.NewRedisClient(db.RedisOptsFrom(cfg.Redis))
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = redisClient.Close() }()
			deps.Counter = middleware.RedisCounter{Client: redisClient}
		} else {
			lg.Warn("redis not configured, rate limiting disabled")
		}

		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(db.ClickHouseOptsFrom(cfg.ClickHouse))
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
			deps.Reports = repository.NewCHContactsRepository(chDB)
		}

		if len(cfg.Admin.APIKeys) == 0 {
			lg.Warn("admin.api_keys is empty, admin API is unauthenticated")
		}

		notifier := outbox.New(repository.NewOutboxRepository(mysqlDB))
		deps.Contacts = bootstrap.ContactService(cfg, mysqlDB, notifier, lg)

		server := httpSrv.NewServer(deps)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			lg.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	},
}
