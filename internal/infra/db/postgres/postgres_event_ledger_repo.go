package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"picturas-subscriptions/internal/domain/ports/repository"
)

var _ repository.EventLedgerRepository = (*eventLedgerRepo)(nil)

type eventLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewEventLedgerRepo(pool *pgxpool.Pool) repository.EventLedgerRepository {
	return &eventLedgerRepo{pool: pool}
}

// MarkProcessed relies on the primary key on event_id: the first delivery
// inserts the row, every redelivery conflicts and affects zero rows.
func (r *eventLedgerRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID string) (bool, error) {
	const q = `
INSERT INTO processed_events (event_id, processed_at)
VALUES ($1, NOW())
ON CONFLICT (event_id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, eventID)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() > 0, nil
}
