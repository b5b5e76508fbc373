// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/config"
	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/domain/ports/repository"
	"picturas-subscriptions/internal/infra/metrics"
	"picturas-subscriptions/internal/infra/redis"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// InitiateCheckout opens a processor checkout session for the user and
	// upserts the (single) subscription record tied to it. Returns the URL to
	// redirect the user to.
	InitiateCheckout(ctx context.Context, userID string) (string, error)
}

type checkoutUC struct {
	subs    repository.SubscriptionRepository
	gateway adapter.BillingGateway
	locker  redis.Locker
	cfg     config.StripeConfig
	log     *zerolog.Logger
}

func NewCheckoutUseCase(
	subs repository.SubscriptionRepository,
	gateway adapter.BillingGateway,
	locker redis.Locker,
	cfg config.StripeConfig,
	logger *zerolog.Logger,
) *checkoutUC {
	compLog := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{subs: subs, gateway: gateway, locker: locker, cfg: cfg, log: &compLog}
}

// InitiateCheckout rules:
//   - No record for the user -> create one in pending with a provisional
//     period; the reconciler corrects the bounds on actual activation.
//   - Record exists -> only checkout_session_id and period bounds are
//     replaced; status and the external subscription id stay as they are,
//     except a terminal lineage (canceled/expired) which restarts at pending.
//
// Both branches are one atomic upsert keyed on the unique user_id index, so a
// racing webhook transition and a repeat checkout converge either way.
func (uc *checkoutUC) InitiateCheckout(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidArgument
	}

	// Serialize per user across instances; the upsert is atomic anyway, this
	// just stops a double-click from opening two processor sessions.
	token, err := uc.locker.TryLock(ctx, redis.CheckoutLockKey(userID), 30*time.Second)
	if err != nil {
		return "", err
	}
	defer func() { _ = uc.locker.Unlock(ctx, redis.CheckoutLockKey(userID), token) }()

	sess, err := uc.gateway.CreateCheckoutSession(ctx, userID)
	if err != nil {
		metrics.IncCheckout("upstream_error")
		uc.log.Error().Err(err).Str("user_id", userID).Msg("checkout session request failed")
		return "", domain.ErrUpstream
	}

	sub, err := model.NewPendingSubscription(uuid.NewString(), userID, sess.ID, uc.cfg.PriceAmount, uc.cfg.BillingPeriod)
	if err != nil {
		return "", err
	}
	if err := uc.subs.Upsert(ctx, repository.NoTX, sub); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return "", err
		}
		metrics.IncCheckout("persistence_error")
		uc.log.Error().Err(err).Str("user_id", userID).Msg("subscription upsert failed")
		return "", domain.ErrPersistence
	}

	metrics.IncCheckout("created")
	uc.log.Info().Str("user_id", userID).Str("session_id", sess.ID).Msg("checkout initiated")
	return sess.URL, nil
}
