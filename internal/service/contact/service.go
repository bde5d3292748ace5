package contact

import (
	"context"
	"errors"
	"time"

	"github.com/jmehdipour/contact-desk/internal/metrics"
	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/repository"
	"github.com/jmehdipour/contact-desk/internal/util"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	DefaultRecentLimit  = 10
	DefaultStoreTimeout = 5 * time.Second
)

// Filter narrows a paginated listing. Zero values mean "any".
type Filter struct {
	Status   string
	Priority string
}

// Service owns the contact lifecycle: validation, classification, storage
// and administrative transitions.
type Service struct {
	contacts repository.ContactsRepository
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration

	// Clock and Location are exported for tests; New sets sane defaults.
	Clock    func() time.Time
	Location *time.Location
}

// New constructs the contact service. A nil notifier disables notification.
func New(contacts repository.ContactsRepository, notifier Notifier, log *zap.Logger, timeout time.Duration) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Service{
		contacts: contacts,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
		Clock:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		Location: time.Local,
	}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Submit validates, classifies and persists a submission, then informs the
// notifier. A TxNotifier is called inside the insert transaction instead. A
// notifier failure is logged and does not fail the call.
func (s *Service) Submit(ctx context.Context, sub Submission) (model.Contact, error) {
	f, err := ValidateSubmission(sub)
	if err != nil {
		metrics.ContactsTotal.WithLabelValues("rejected", "none").Inc()
		return model.Contact{}, err
	}

	now := s.Clock()
	c := model.Contact{
		ID:        util.NewAt(now),
		Name:      f.Name,
		Email:     f.Email,
		Phone:     optional(f.Phone),
		Subject:   f.Subject,
		Message:   f.Message,
		Status:    model.StatusNew,
		Priority:  Classify(f.Subject, f.Message, model.PriorityMedium),
		Source:    f.Source,
		IPAddress: optional(f.IPAddress),
		UserAgent: optional(f.UserAgent),
		CreatedAt: now,
		UpdatedAt: now,
	}

	txn, joinsTx := s.notifier.(TxNotifier)

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	err = s.contacts.InTx(sctx, func(tx *sqlx.Tx) error {
		if err := s.contacts.Insert(sctx, tx, c); err != nil {
			return err
		}
		// a failed outbox write is not rolled back into the contact insert
		if joinsTx {
			if err := txn.NotifySubmissionTx(sctx, tx, c); err != nil {
				s.log.Warn("notify submission failed", zap.String("id", c.ID), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		metrics.ContactsTotal.WithLabelValues("failed", c.Priority.String()).Inc()
		return model.Contact{}, &StoreError{Op: "insert contact", Err: err}
	}
	metrics.ContactsTotal.WithLabelValues("submitted", c.Priority.String()).Inc()
	s.log.Info("contact submitted",
		zap.String("id", c.ID),
		zap.String("priority", c.Priority.String()),
		zap.String("source", c.Source.String()),
	)

	if !joinsTx {
		if err := s.notifier.NotifySubmission(ctx, c); err != nil {
			s.log.Warn("notify submission failed", zap.String("id", c.ID), zap.Error(err))
		}
	}
	return c, nil
}

// Get returns the contact with the given id. It never changes the record.
func (s *Service) Get(ctx context.Context, id string) (model.Contact, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.contacts.GetByID(sctx, id)
	if err != nil {
		return model.Contact{}, s.storeErr("get contact", id, err)
	}
	return c, nil
}

// List returns one page of contacts, newest first.
func (s *Service) List(ctx context.Context, f Filter, page, pageSize int) (model.ContactPage, error) {
	q, err := f.query()
	if err != nil {
		return model.ContactPage{}, err
	}
	var verr ValidationError
	if page < 1 {
		verr.Violations = append(verr.Violations, FieldViolation{Field: "page", Reason: "Page must be at least 1"})
	}
	if pageSize < 1 {
		verr.Violations = append(verr.Violations, FieldViolation{Field: "limit", Reason: "Limit must be at least 1"})
	}
	if len(verr.Violations) > 0 {
		return model.ContactPage{}, &verr
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	total, err := s.contacts.Count(sctx, q)
	if err != nil {
		return model.ContactPage{}, &StoreError{Op: "count contacts", Err: err}
	}
	q.Limit, q.Offset = pageSize, (page-1)*pageSize
	rows, err := s.contacts.List(sctx, q)
	if err != nil {
		return model.ContactPage{}, &StoreError{Op: "list contacts", Err: err}
	}

	return model.ContactPage{
		Contacts: rows,
		Pagination: model.Pagination{
			Current: page,
			Pages:   (total + pageSize - 1) / pageSize,
			Total:   total,
			Limit:   pageSize,
		},
	}, nil
}

func (s *Service) ListByStatus(ctx context.Context, status model.ContactStatus) ([]model.Contact, error) {
	if !status.Valid() {
		return nil, invalid("status", "Status must be one of new, read, replied, archived")
	}
	return s.list(ctx, repository.ContactQuery{Status: status})
}

func (s *Service) ListByPriority(ctx context.Context, priority model.Priority) ([]model.Contact, error) {
	if !priority.Valid() {
		return nil, &InvalidPriorityError{Value: priority.String()}
	}
	return s.list(ctx, repository.ContactQuery{Priority: priority})
}

// ListUnread returns every contact still in status new.
func (s *Service) ListUnread(ctx context.Context) ([]model.Contact, error) {
	return s.ListByStatus(ctx, model.StatusNew)
}

// ListRecent returns up to limit newest contacts; limit 0 means DefaultRecentLimit.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]model.Contact, error) {
	if limit < 0 {
		return nil, invalid("limit", "Limit cannot be negative")
	}
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, repository.ContactQuery{Limit: limit})
}

// Search matches query case-insensitively against name, email, subject and
// message. An empty query matches everything.
func (s *Service) Search(ctx context.Context, query string) ([]model.Contact, error) {
	return s.list(ctx, repository.ContactQuery{Search: query})
}

func (s *Service) list(ctx context.Context, q repository.ContactQuery) ([]model.Contact, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	rows, err := s.contacts.List(sctx, q)
	if err != nil {
		return nil, &StoreError{Op: "list contacts", Err: err}
	}
	return rows, nil
}

// Transition applies an administrative action and returns the resulting
// snapshot. Actions that do not apply to the current status return the
// record unchanged.
func (s *Service) Transition(ctx context.Context, id string, action Action, p Payload) (model.Contact, error) {
	u, err := plan(action, p, s.Clock())
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(action.String(), "rejected").Inc()
		return model.Contact{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, applied, err := s.contacts.Update(sctx, id, u)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.TransitionsTotal.WithLabelValues(action.String(), "rejected").Inc()
		} else {
			metrics.TransitionsTotal.WithLabelValues(action.String(), "error").Inc()
		}
		return model.Contact{}, s.storeErr("update contact", id, err)
	}

	result := "noop"
	if applied {
		result = "applied"
	}
	metrics.TransitionsTotal.WithLabelValues(action.String(), result).Inc()
	s.log.Debug("contact transition",
		zap.String("id", id),
		zap.String("action", action.String()),
		zap.String("result", result),
		zap.String("status", c.Status.String()),
	)
	return c, nil
}

// Statistics returns the total, today's count (since local midnight) and
// per-status counts. Statuses without records are absent from ByStatus.
func (s *Service) Statistics(ctx context.Context) (model.ContactStats, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	total, err := s.contacts.Count(sctx, repository.ContactQuery{})
	if err != nil {
		return model.ContactStats{}, &StoreError{Op: "count contacts", Err: err}
	}
	today, err := s.contacts.CountCreatedSince(sctx, s.startOfDay())
	if err != nil {
		return model.ContactStats{}, &StoreError{Op: "count today", Err: err}
	}
	byStatus, err := s.contacts.CountByStatus(sctx)
	if err != nil {
		return model.ContactStats{}, &StoreError{Op: "count by status", Err: err}
	}

	return model.ContactStats{Total: total, Today: today, ByStatus: byStatus}, nil
}

// MarkEmailSent records that notification succeeded for ids.
func (s *Service) MarkEmailSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.contacts.MarkEmailSent(sctx, nil, ids, s.Clock()); err != nil {
		return &StoreError{Op: "mark email sent", Err: err}
	}
	return nil
}

func (s *Service) startOfDay() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := s.Clock().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).UTC()
}

func (s *Service) storeErr(op, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return &StoreError{Op: op, Err: err}
}

func (f Filter) query() (repository.ContactQuery, error) {
	var q repository.ContactQuery
	if f.Status != "" {
		st, ok := model.ParseContactStatus(f.Status)
		if !ok {
			return q, invalid("status", "Status must be one of new, read, replied, archived")
		}
		q.Status = st
	}
	if f.Priority != "" {
		p, ok := model.ParsePriority(f.Priority)
		if !ok {
			return q, &InvalidPriorityError{Value: f.Priority}
		}
		q.Priority = p
	}
	return q, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
