package worker

import (
	"context"
	"time"

	"github.com/jmehdipour/contact-desk/internal/kafka"
	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls unpublished outbox rows and publishes them to their topics.
// A failed batch stays pending with its attempts incremented.
type Relay struct {
	Outbox    repository.OutboxRepository
	Publisher Publisher
	Log       *zap.Logger

	Interval  time.Duration
	BatchSize int

	now func() time.Time
}

func NewRelay(outbox repository.OutboxRepository, pub Publisher, log *zap.Logger) *Relay {
	return &Relay{
		Outbox:    outbox,
		Publisher: pub,
		Log:       log,
		Interval:  500 * time.Millisecond,
		BatchSize: 100,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		r.Interval = 500 * time.Millisecond
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()

	for {
		// drain full batches before waiting for the next tick
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.Log.Warn("outbox relay failed", zap.Error(err))
			}
			if err != nil || n == 0 || n < r.BatchSize {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

// RelayOnce publishes one batch of pending events and returns its size.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	events, err := r.Outbox.FetchPending(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
		msgs = append(msgs, toMessage(ev))
	}

	if err := r.Publisher.Publish(ctx, msgs...); err != nil {
		metrics.OutboxRelayedTotal.WithLabelValues("failed").Add(float64(len(ids)))
		if aerr := r.Outbox.IncrementAttempts(ctx, ids); aerr != nil {
			r.Log.Error("increment outbox attempts", zap.Error(aerr))
		}
		return 0, err
	}

	if err := r.Outbox.MarkPublished(ctx, ids, r.now()); err != nil {
		// rows will be published again; consumers tolerate duplicates
		return 0, err
	}
	metrics.OutboxRelayedTotal.WithLabelValues("published").Add(float64(len(ids)))
	r.Log.Debug("outbox relayed", zap.Int("count", len(ids)))
	return len(ids), nil
}

func toMessage(ev model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Topic: ev.Topic,
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "aggregate", Value: []byte(ev.Aggregate)},
		},
	}
}
