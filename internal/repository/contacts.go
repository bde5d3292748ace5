package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmoiron/sqlx"
)

const contactColumns = `id, name, email, phone, subject, message, status, priority, source,
	ip_address, user_agent, email_sent, email_sent_at, response_time, notes, created_at, updated_at`

// ContactQuery filters and pages contact listings. Zero values mean "no filter";
// Limit <= 0 means unbounded.
type ContactQuery struct {
	Status   model.ContactStatus
	Priority model.Priority
	Search   string
	Limit    int
	Offset   int
}

// ContactUpdate is a single conditional mutation of one contact. The update only
// applies when the stored status is one of AllowedFrom (any status when empty).
type ContactUpdate struct {
	AllowedFrom     []model.ContactStatus
	Status          model.ContactStatus
	Priority        model.Priority
	Notes           *string
	SetResponseTime bool
	At              time.Time
}

// ContactsRepository defines persistence for the contacts table.
type ContactsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Contact) error
	GetByID(ctx context.Context, id string) (model.Contact, error)
	List(ctx context.Context, q ContactQuery) ([]model.Contact, error)
	Count(ctx context.Context, q ContactQuery) (int, error)
	CountByStatus(ctx context.Context) (map[model.ContactStatus]int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	Update(ctx context.Context, id string, u ContactUpdate) (model.Contact, bool, error)
	MarkEmailSent(ctx context.Context, tx *sqlx.Tx, ids []string, at time.Time) error
	InTx(ctx context.Context, fn func(*sqlx.Tx) error) error
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

func (r *ContactsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

// InTx runs fn in a new transaction, committing only when fn succeeds.
func (r *ContactsRepositoryImpl) InTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return r.withTx(ctx, nil, fn)
}

// Insert writes a fully constructed contact row.
func (r *ContactsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Contact) error {
	const q = `
		INSERT INTO contacts
		    (id, name, email, phone, subject, message, status, priority, source,
		     ip_address, user_agent, email_sent, email_sent_at, response_time, notes, created_at, updated_at)
		VALUES
		    (:id, :name, :email, :phone, :subject, :message, :status, :priority, :source,
		     :ip_address, :user_agent, :email_sent, :email_sent_at, :response_time, :notes, :created_at, :updated_at)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, q, c)
		return err
	})
}

func (r *ContactsRepositoryImpl) GetByID(ctx context.Context, id string) (model.Contact, error) {
	return getContact(ctx, r.db, id)
}

func getContact(ctx context.Context, q sqlx.QueryerContext, id string) (model.Contact, error) {
	var c model.Contact
	err := sqlx.GetContext(ctx, q, &c, `SELECT `+contactColumns+` FROM contacts WHERE id = ? LIMIT 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, err
	}
	return c, nil
}

// List returns contacts matching q, newest first.
func (r *ContactsRepositoryImpl) List(ctx context.Context, q ContactQuery) ([]model.Contact, error) {
	where, args := q.where()

	query := `SELECT ` + contactColumns + ` FROM contacts` + where + ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, max(q.Offset, 0))
	}

	rows := []model.Contact{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of contacts matching q's filters (paging ignored).
func (r *ContactsRepositoryImpl) Count(ctx context.Context, q ContactQuery) (int, error) {
	where, args := q.where()

	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contacts`+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ContactsRepositoryImpl) CountByStatus(ctx context.Context) (map[model.ContactStatus]int, error) {
	var rows []struct {
		Status model.ContactStatus `db:"status"`
		Count  int                 `db:"cnt"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS cnt FROM contacts GROUP BY status`); err != nil {
		return nil, err
	}

	out := make(map[model.ContactStatus]int, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.Count
	}
	return out, nil
}

func (r *ContactsRepositoryImpl) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM contacts WHERE created_at >= ?`, since); err != nil {
		return 0, err
	}
	return n, nil
}

// Update applies u as one conditional UPDATE and returns the stored row after
// it, plus whether the update matched. A missing id yields ErrNotFound.
func (r *ContactsRepositoryImpl) Update(ctx context.Context, id string, u ContactUpdate) (model.Contact, bool, error) {
	query, args, err := u.statement(id)
	if err != nil {
		return model.Contact{}, false, err
	}
	query = r.db.Rebind(query)

	var (
		out     model.Contact
		applied bool
	)
	err = r.withTx(ctx, nil, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		applied = n > 0

		out, err = getContact(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Contact{}, false, err
	}
	return out, applied, nil
}

// MarkEmailSent flags many contacts as notified using a single statement.
// email_sent_at keeps its first value.
func (r *ContactsRepositoryImpl) MarkEmailSent(ctx context.Context, tx *sqlx.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const base = `UPDATE contacts
		SET email_sent = ?, email_sent_at = COALESCE(email_sent_at, ?), updated_at = ?
		WHERE id IN (?)`
	query, args, err := sqlx.In(base, true, at, at, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

func (q ContactQuery) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, q.Status.String())
	}
	if q.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, q.Priority.String())
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		conds = append(conds, `(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!'
			OR LOWER(subject) LIKE ? ESCAPE '!' OR LOWER(message) LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (u ContactUpdate) statement(id string) (string, []any, error) {
	var sb strings.Builder
	args := []any{u.At}

	sb.WriteString(`UPDATE contacts SET updated_at = ?`)
	if u.Status != "" {
		sb.WriteString(`, status = ?`)
		args = append(args, u.Status.String())
	}
	if u.Priority != "" {
		sb.WriteString(`, priority = ?`)
		args = append(args, u.Priority.String())
	}
	if u.Notes != nil {
		sb.WriteString(`, notes = ?`)
		args = append(args, *u.Notes)
	}
	if u.SetResponseTime {
		sb.WriteString(`, response_time = COALESCE(response_time, ?)`)
		args = append(args, u.At)
	}
	sb.WriteString(` WHERE id = ?`)
	args = append(args, id)

	if len(u.AllowedFrom) == 0 {
		return sb.String(), args, nil
	}

	from := make([]string, 0, len(u.AllowedFrom))
	for _, s := range u.AllowedFrom {
		from = append(from, s.String())
	}
	sb.WriteString(` AND status IN (?)`)
	args = append(args, from)

	return sqlx.In(sb.String(), args...)
}

// escapeLike escapes LIKE wildcards with '!' so the same statement runs on
// MySQL and SQLite.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
