package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmehdipour/contact-desk/internal/bootstrap"
	"github.com/jmehdipour/contact-desk/internal/config"
	"github.com/jmehdipour/contact-desk/internal/dispatcher"
	"github.com/jmehdipour/contact-desk/internal/kafka"
	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/notify"
	"github.com/jmehdipour/contact-desk/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifierCmd = &cobra.Command{
	Use:       "notifier <standard|priority>",
	Short:     "Run notification worker for one lane",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{model.LaneStandard.String(), model.LanePriority.String()},
	RunE: func(cmd *cobra.Command, args []string) error {
		lane, ok := model.ParseLane(args[0])
		if !ok {
			return fmt.Errorf("unknown lane %q", args[0])
		}
		return runNotifier(cmd, lane)
	},
}

func runNotifier(cmd *cobra.Command, lane model.Lane) error {
	// 1) config + logger
	cfg, lg, err := bootstrap.Load(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := bootstrap.OpenMySQL(cfg)
	if err != nil {
		return err
	}
	defer dbx.Close()

	contacts := bootstrap.ContactService(cfg, dbx, nil, lg)

	// 3) templates
	composer, err := notify.NewComposer(cfg.Notifier)
	if err != nil {
		return fmt.Errorf("notifier templates: %w", err)
	}

	// 4) providers → dispatcher
	provs, err := mailProviders(cfg.Mail)
	if err != nil {
		return err
	}
	disp := dispatcher.NewDispatcher(provs, cfg.Dispatcher.MaxRetryAttempts.Priority, cfg.Dispatcher.MaxRetryAttempts.Standard)

	// 5) kafka consumer
	kcfg := kafka.ConfigFrom(cfg.Kafka, lane.String())
	consumer := kafka.NewConsumerFromConfig(kcfg)
	defer consumer.Close()

	w := worker.NewNotifier(consumer, composer, disp, contacts, lg.Named("notifier"), lane)

	// tune knobs
	if cfg.Dispatcher.WorkerCount > 0 {
		w.Workers = cfg.Dispatcher.WorkerCount
	}
	if cfg.Dispatcher.BatchSize > 0 {
		w.BatchSize = cfg.Dispatcher.BatchSize
	}
	if cfg.Dispatcher.BatchWait > 0 {
		w.BatchWait = cfg.Dispatcher.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("notifier started",
		zap.String("lane", lane.String()),
		zap.String("topic", kcfg.Topic),
		zap.String("group", kcfg.GroupID),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}

func mailProviders(c config.MailConfig) ([]dispatcher.Provider, error) {
	var provs []dispatcher.Provider
	if c.HTTP.Enabled && strings.TrimSpace(c.HTTP.BaseURL) != "" {
		provs = append(provs, dispatcher.NewHTTPProvider(c.HTTP))
	}
	if c.SMTP.Enabled && strings.TrimSpace(c.SMTP.Host) != "" {
		provs = append(provs, dispatcher.NewSMTPProvider(c.SMTP))
	}
	if len(provs) == 0 {
		return nil, fmt.Errorf("no mail providers enabled in config")
	}
	return provs, nil
}
