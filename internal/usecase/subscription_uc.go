// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/repository"
	"picturas-subscriptions/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// GetByUser returns the caller's subscription record.
	GetByUser(ctx context.Context, userID string) (*model.Subscription, error)
	// FinishExpired moves active records whose period (plus grace) has lapsed
	// to expired and announces the downgraded role. Returns how many records
	// were finished.
	FinishExpired(ctx context.Context) (int, error)
	// RefreshStatusMetrics updates the per-status gauge.
	RefreshStatusMetrics(ctx context.Context) error
}

type subscriptionUC struct {
	subs  repository.SubscriptionRepository
	notif NotificationUseCase
	grace time.Duration
	log   *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, notif NotificationUseCase, grace time.Duration, logger *zerolog.Logger) *subscriptionUC {
	compLog := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, notif: notif, grace: grace, log: &compLog}
}

func (uc *subscriptionUC) GetByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.subs.FindByUserID(ctx, repository.NoTX, userID)
}

const expiryBatch = 100

func (uc *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-uc.grace)
	expired, err := uc.subs.FindExpired(ctx, repository.NoTX, cutoff, expiryBatch)
	if err != nil {
		return 0, err
	}

	finished := 0
	for _, sub := range expired {
		// The batch read is a snapshot; the write re-checks the predicate so
		// a renewal committed in between keeps the row and skips the notify.
		ok, err := uc.subs.ExpireIfLapsed(ctx, repository.NoTX, sub.ID, cutoff)
		if err != nil {
			uc.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("expire update failed")
			continue
		}
		if !ok {
			continue
		}
		sub.Status = model.SubscriptionStatusExpired
		finished++
		uc.notif.Dispatch(ctx, sub.UserID, sub.Role(), sub.RoleExpiry())
	}
	return finished, nil
}

func (uc *subscriptionUC) RefreshStatusMetrics(ctx context.Context) error {
	counts, err := uc.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return err
	}
	metrics.SetSubscriptionsTotal(counts)
	return nil
}
