package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jmehdipour/contact-desk/internal/kafka"
	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/model"
	"go.uber.org/zap"
)

type MessageSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type Composer interface {
	Compose(c model.Contact) ([]model.Email, error)
}

type Mailer interface {
	Send(ctx context.Context, lane model.Lane, e model.Email) error
}

// EmailMarker flags contacts whose notification went out.
type EmailMarker interface {
	MarkEmailSent(ctx context.Context, ids []string) error
}

// Notifier:
// - fetches contact envelopes from a lane topic,
// - renders and dispatches the confirmation and operator emails,
// - batches email_sent updates.
type Notifier struct {
	// Dependencies
	Consumer MessageSource
	Composer Composer
	Dispatch Mailer
	Contacts EmailMarker
	Log      *zap.Logger

	// Behavior
	Lane      model.Lane    // topic-bound worker
	Workers   int           // goroutines processing messages
	BatchSize int           // max buffered ids per flush
	BatchWait time.Duration // max time to wait before flush
}

// NewNotifier builds a lane worker with sane defaults.
func NewNotifier(
	consumer MessageSource,
	composer Composer,
	dispatch Mailer,
	contacts EmailMarker,
	log *zap.Logger,
	lane model.Lane,
) *Notifier {
	return &Notifier{
		Consumer:  consumer,
		Composer:  composer,
		Dispatch:  dispatch,
		Contacts:  contacts,
		Log:       log,
		Lane:      lane,
		Workers:   8,
		BatchSize: 100,
		BatchWait: 500 * time.Millisecond,
	}
}

// Run starts the worker and blocks until ctx is cancelled and pending
// updates are flushed.
func (w *Notifier) Run(ctx context.Context) error {
	if !w.Lane.Valid() {
		return errors.New("notifier: invalid lane")
	}
	if w.Workers <= 0 {
		w.Workers = 8
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 100
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 500 * time.Millisecond
	}
	if w.Log == nil {
		w.Log = zap.NewNop()
	}

	sent := make(chan string, w.BatchSize*2)
	msgCh := make(chan kafka.Message, w.Workers*2)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w.runBatchWriter(sent)
	}()

	go w.fetch(ctx, msgCh)

	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runProcessor(ctx, msgCh, sent)
		}()
	}

	wg.Wait()
	close(sent)
	<-writerDone
	return nil
}

func (w *Notifier) fetch(ctx context.Context, out chan<- kafka.Message) {
	defer close(out)
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.Log.Warn("kafka fetch failed", zap.String("lane", w.Lane.String()), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Notifier) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- string) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

func (w *Notifier) processOne(ctx context.Context, m kafka.Message, out chan<- string) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.ID == "" {
		_ = w.Consumer.Commit(ctx, m) // poison: commit and skip
		w.Log.Warn("bad envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}

	if err := w.deliver(ctx, env); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed", w.Lane.String()).Inc()
		w.Log.Warn("notification failed", zap.String("id", env.ID), zap.Error(err))
	} else {
		metrics.NotificationsTotal.WithLabelValues("sent", w.Lane.String()).Inc()
		out <- env.ID
	}

	// committed even on failure: a later offset commit would skip it anyway.
	// Failed contacts stay email_sent=false; MarkEmailSent keeps the first email_sent_at.
	if err := w.Consumer.Commit(ctx, m); err != nil {
		w.Log.Warn("kafka commit failed", zap.Error(err))
	}
}

// deliver sends every composed email; the contact counts as notified only
// when all of them went out.
func (w *Notifier) deliver(ctx context.Context, env model.Envelope) error {
	emails, err := w.Composer.Compose(env.Contact)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range emails {
		if err := w.Dispatch.Send(ctx, w.Lane, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runBatchWriter does size/time-based flush of email_sent updates. It drains
// in until the channel is closed.
func (w *Notifier) runBatchWriter(in <-chan string) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	ids := make([]string, 0, w.BatchSize)

	flush := func() {
		if len(ids) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := w.Contacts.MarkEmailSent(ctx, ids); err != nil {
			w.Log.Error("mark email sent failed", zap.Int("count", len(ids)), zap.Error(err))
		} else {
			w.Log.Info("flushed", zap.String("lane", w.Lane.String()), zap.Int("sent", len(ids)))
		}
		ids = ids[:0]
	}

	for {
		select {
		case id, ok := <-in:
			if !ok {
				flush()
				return
			}
			ids = append(ids, id)
			if len(ids) >= w.BatchSize {
				flush()
			}
		case <-tick.C:
			flush()
		}
	}
}
