package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, user_id, checkout_session_id, external_subscription_id, price, start_date, end_date, status, created_at, updated_at`

// Upsert is the checkout-path write: one row per user, enforced by the unique
// index on user_id. A conflicting insert overwrites only the checkout session
// and period bounds (plus status, so a terminal lineage restarts at pending);
// external_subscription_id is never touched here.
func (r *subscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, checkout_session_id, external_subscription_id, price, start_date, end_date, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (user_id) DO UPDATE SET
  checkout_session_id=EXCLUDED.checkout_session_id,
  price=EXCLUDED.price,
  start_date=EXCLUDED.start_date,
  end_date=EXCLUDED.end_date,
  status=CASE WHEN subscriptions.status IN ('canceled','expired') THEN 'pending' ELSE subscriptions.status END,
  updated_at=EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.CheckoutSessionID, s.ExternalSubID, s.Price, s.StartDate, s.EndDate, s.Status, s.CreatedAt, s.UpdatedAt)
	return mapExecErr(err)
}

// Update persists a reconciler transition as a single full-row write.
func (r *subscriptionRepo) Update(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
UPDATE subscriptions SET
  checkout_session_id=$2,
  external_subscription_id=$3,
  price=$4,
  start_date=$5,
  end_date=$6,
  status=$7,
  updated_at=$8
WHERE id=$1;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.CheckoutSessionID, s.ExternalSubID, s.Price, s.StartDate, s.EndDate, s.Status, s.UpdatedAt)
	if err != nil {
		return mapExecErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE user_id=$1;`
	return r.queryOne(ctx, tx, q, userID)
}

func (r *subscriptionRepo) FindByCheckoutSessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE checkout_session_id=$1;`
	return r.queryOne(ctx, tx, q, sessionID)
}

func (r *subscriptionRepo) FindByExternalSubID(ctx context.Context, tx repository.Tx, externalSubID string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE external_subscription_id=$1;`
	return r.queryOne(ctx, tx, q, externalSubID)
}

func (r *subscriptionRepo) FindExpired(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subColumns + `
  FROM subscriptions
 WHERE status='active' AND end_date < $1
 ORDER BY end_date ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, cutoff, limit)
	if err != nil {
		return nil, mapQueryErr(err)
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// ExpireIfLapsed is the expiry worker's write. The status and end_date
// predicates are part of the statement: a renewal that committed between the
// worker's batch read and this write leaves the row current and zero rows
// affected, so the worker cannot regress a concurrently extended period.
func (r *subscriptionRepo) ExpireIfLapsed(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error) {
	const q = `
UPDATE subscriptions SET status='expired', updated_at=NOW()
 WHERE id=$1 AND status='active' AND end_date < $2;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, cutoff)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.SubscriptionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.SubscriptionStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}
	s, err := scanSub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSub(row rowScanner) (*model.Subscription, error) {
	s := &model.Subscription{}
	var status string
	if err := row.Scan(&s.ID, &s.UserID, &s.CheckoutSessionID, &s.ExternalSubID, &s.Price,
		&s.StartDate, &s.EndDate, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}

func mapExecErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
		return err
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPersistence
		}
		return domain.ErrOperationFailed
	}
}

func mapQueryErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
		return err
	default:
		return domain.ErrOperationFailed
	}
}
