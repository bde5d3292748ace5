package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmoiron/sqlx"
)

// Aggregate is the outbox aggregate name for contact events.
const Aggregate = "contact"

// Notifier records every accepted contact as an outbox event on its lane
// topic. The relay worker (or Debezium Outbox SMT) publishes it to Kafka.
type Notifier struct {
	outbox repository.OutboxRepository
	now    func() time.Time
}

// New constructs the outbox notifier.
func New(outboxRepo repository.OutboxRepository) *Notifier {
	return &Notifier{
		outbox: outboxRepo,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NotifySubmission writes an envelope {id, lane, contact} to the outbox in its
// own transaction.
func (n *Notifier) NotifySubmission(ctx context.Context, c model.Contact) error {
	return n.NotifySubmissionTx(ctx, nil, c)
}

// NotifySubmissionTx writes the envelope within tx (nil opens a new one).
// Urgent and high priority contacts go to the priority lane.
func (n *Notifier) NotifySubmissionTx(ctx context.Context, tx *sqlx.Tx, c model.Contact) error {
	lane := model.LaneFor(c.Priority)

	payload, err := json.Marshal(model.Envelope{ID: c.ID, Lane: lane, Contact: c})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ev := model.OutboxEvent{
		Aggregate:   Aggregate,
		AggregateID: c.ID,
		Topic:       lane.Topic(),
		Payload:     payload,
		CreatedAt:   n.now(),
	}
	if err := n.outbox.Insert(ctx, tx, ev); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
