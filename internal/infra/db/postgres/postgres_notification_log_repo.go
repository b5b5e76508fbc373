package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLogRepo(pool *pgxpool.Pool) repository.NotificationLogRepository {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) SaveFailed(ctx context.Context, tx repository.Tx, n *model.RoleNotification) error {
	const q = `
INSERT INTO role_notifications (id, user_id, role, expires_on, attempts, created_at, last_tried)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err := execSQL(ctx, r.pool, tx, q, n.ID, n.UserID, n.Role, n.ExpiresOn, n.Attempts, n.CreatedAt, n.LastTried)
	return mapExecErr(err)
}

func (r *notificationLogRepo) ListPending(ctx context.Context, tx repository.Tx, maxAttempts, limit int) ([]*model.RoleNotification, error) {
	const q = `
SELECT id, user_id, role, expires_on, attempts, created_at, last_tried
  FROM role_notifications
 WHERE attempts < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, maxAttempts, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	var out []*model.RoleNotification
	for rows.Next() {
		n := &model.RoleNotification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Role, &n.ExpiresOn, &n.Attempts, &n.CreatedAt, &n.LastTried); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *notificationLogRepo) MarkDelivered(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM role_notifications WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	return mapExecErr(err)
}

func (r *notificationLogRepo) BumpAttempt(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE role_notifications SET attempts=attempts+1, last_tried=$2 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	return mapExecErr(err)
}
