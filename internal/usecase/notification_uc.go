// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/domain/ports/repository"
	"picturas-subscriptions/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// Dispatch pushes the user's current role to the users service. Failures
	// land in the outbox for the retry worker; they never reach the caller.
	Dispatch(ctx context.Context, userID, role string, expiresOn *time.Time)
	// RetryPending replays outbox entries; returns how many were delivered.
	RetryPending(ctx context.Context) (int, error)
}

type notificationUC struct {
	notifier    adapter.RoleNotifier
	outbox      repository.NotificationLogRepository
	maxAttempts int
	log         *zerolog.Logger
}

func NewNotificationUseCase(notifier adapter.RoleNotifier, outbox repository.NotificationLogRepository, maxAttempts int, logger *zerolog.Logger) *notificationUC {
	compLog := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{notifier: notifier, outbox: outbox, maxAttempts: maxAttempts, log: &compLog}
}

func (uc *notificationUC) Dispatch(ctx context.Context, userID, role string, expiresOn *time.Time) {
	if err := uc.notifier.Notify(ctx, userID, role, expiresOn); err == nil {
		return
	}
	now := time.Now().UTC()
	n := &model.RoleNotification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		ExpiresOn: expiresOn,
		Attempts:  1,
		CreatedAt: now,
		LastTried: &now,
	}
	if err := uc.outbox.SaveFailed(ctx, repository.NoTX, n); err != nil {
		// Both the push and the outbox write failed; the subscription state
		// itself is already committed, so all we can do is log.
		uc.log.Error().Err(err).Str("user_id", userID).Msg("notification outbox write failed")
	}
}

const retryBatch = 50

func (uc *notificationUC) RetryPending(ctx context.Context) (int, error) {
	pending, err := uc.outbox.ListPending(ctx, repository.NoTX, uc.maxAttempts, retryBatch)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, n := range pending {
		if err := uc.notifier.Notify(ctx, n.UserID, n.Role, n.ExpiresOn); err != nil {
			if err := uc.outbox.BumpAttempt(ctx, repository.NoTX, n.ID, time.Now().UTC()); err != nil {
				uc.log.Error().Err(err).Str("notification_id", n.ID).Msg("attempt bump failed")
			}
			continue
		}
		if err := uc.outbox.MarkDelivered(ctx, repository.NoTX, n.ID); err != nil {
			uc.log.Error().Err(err).Str("notification_id", n.ID).Msg("outbox delete failed")
			continue
		}
		metrics.IncNotification("retried")
		delivered++
	}
	return delivered, nil
}
