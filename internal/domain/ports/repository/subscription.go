package repository

import (
	"context"
	"time"

	"picturas-subscriptions/internal/domain/model"
)

// SubscriptionRepository is the port for subscription records. All state
// mutation goes through Upsert (checkout path) or Update (reconciler path);
// nothing else writes status, end_date or the external subscription id.
type SubscriptionRepository interface {
	// Upsert atomically creates the record for sub.UserID or, if one exists,
	// overwrites checkout_session_id/start/end (and status, for lineage
	// restarts). Relies on the unique index on user_id.
	Upsert(ctx context.Context, tx Tx, sub *model.Subscription) error
	// Update persists a reconciler transition as a single full-row write.
	Update(ctx context.Context, tx Tx, sub *model.Subscription) error

	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	FindByCheckoutSessionID(ctx context.Context, tx Tx, sessionID string) (*model.Subscription, error)
	FindByExternalSubID(ctx context.Context, tx Tx, externalSubID string) (*model.Subscription, error)

	// FindExpired returns active records whose end_date is older than cutoff,
	// for the expiry worker.
	FindExpired(ctx context.Context, tx Tx, cutoff time.Time, limit int) ([]*model.Subscription, error)

	// ExpireIfLapsed finishes one record, re-checking the expiry predicate in
	// the same statement so a transition committed after the caller's read
	// wins. Returns whether the record was expired.
	ExpireIfLapsed(ctx context.Context, tx Tx, id string, cutoff time.Time) (bool, error)

	// CountByStatus powers the metrics gauge refresh.
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
