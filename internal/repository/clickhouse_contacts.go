package repository

import (
	"context"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmoiron/sqlx"
)

// CHContactsRepository reads the ClickHouse mirror of the contacts table
// (fed by CDC into contactdesk.contacts_latest).
type CHContactsRepository interface {
	DailyVolume(ctx context.Context, days int) ([]model.DailyVolume, error)
}

type chContactsRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHContactsRepository(ch *sqlx.DB) CHContactsRepository {
	return &chContactsRepository{ch: ch}
}

// DailyVolume returns submissions per day and priority for the last `days` days.
func (r *chContactsRepository) DailyVolume(ctx context.Context, days int) ([]model.DailyVolume, error) {
	if days <= 0 || days > 366 {
		days = 30
	}

	const q = `
		SELECT toDate(created_at) AS day, priority, count() AS cnt
		FROM contactdesk.contacts_latest
		WHERE created_at >= today() - ?
		GROUP BY day, priority
		ORDER BY day DESC, priority
	`

	var rows []model.DailyVolume
	if err := r.ch.SelectContext(ctx, &rows, q, days); err != nil {
		return nil, err
	}
	return rows, nil
}
