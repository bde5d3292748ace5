package contact

import (
	"context"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmoiron/sqlx"
)

// Notifier is informed of every accepted submission. Failures never reject
// the submission.
type Notifier interface {
	NotifySubmission(ctx context.Context, c model.Contact) error
}

// TxNotifier records the notification in the transaction that inserts the
// contact, so both rows commit together.
type TxNotifier interface {
	Notifier
	NotifySubmissionTx(ctx context.Context, tx *sqlx.Tx, c model.Contact) error
}

type NotifierFunc func(ctx context.Context, c model.Contact) error

func (f NotifierFunc) NotifySubmission(ctx context.Context, c model.Contact) error { return f(ctx, c) }

type noopNotifier struct{}

func (noopNotifier) NotifySubmission(context.Context, model.Contact) error { return nil }
