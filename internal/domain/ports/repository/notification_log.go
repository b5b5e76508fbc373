package repository

import (
	"context"
	"time"

	"picturas-subscriptions/internal/domain/model"
)

// NotificationLogRepository keeps the outbox of role notifications that could
// not be delivered, so the retry worker can replay them.
type NotificationLogRepository interface {
	// SaveFailed records a notification that failed to deliver.
	SaveFailed(ctx context.Context, tx Tx, n *model.RoleNotification) error
	// ListPending returns undelivered notifications with fewer than
	// maxAttempts attempts, oldest first.
	ListPending(ctx context.Context, tx Tx, maxAttempts, limit int) ([]*model.RoleNotification, error)
	// MarkDelivered removes a notification from the outbox.
	MarkDelivered(ctx context.Context, tx Tx, id string) error
	// BumpAttempt increments the attempt counter after a failed retry.
	BumpAttempt(ctx context.Context, tx Tx, id string, at time.Time) error
}
