package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/contact-desk/internal/bootstrap"
	"github.com/jmehdipour/contact-desk/internal/kafka"
	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Publish pending outbox events to Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := bootstrap.Load(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = lg.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		if len(cfg.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is empty")
		}

		dbx, err := bootstrap.OpenMySQL(cfg)
		if err != nil {
			return err
		}
		defer dbx.Close()

		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		r := worker.NewRelay(repository.NewOutboxRepository(dbx), producer, lg.Named("relay"))
		if cfg.Relay.Interval > 0 {
			r.Interval = cfg.Relay.Interval
		}
		if cfg.Relay.BatchSize > 0 {
			r.BatchSize = cfg.Relay.BatchSize
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		lg.Info("relay started",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.Duration("interval", r.Interval),
			zap.Int("batch_size", r.BatchSize),
		)
		return r.Run(ctx)
	},
}
