// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/domain/ports/repository"
	"picturas-subscriptions/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// Apply folds one verified event into the subscription store. Redelivery
	// of an already-applied event, events of unknown kind and events for
	// unknown records are benign no-ops; the caller acknowledges all of them.
	Apply(ctx context.Context, event *model.BillingEvent) error
}

type reconcileUC struct {
	subs    repository.SubscriptionRepository
	ledger  repository.EventLedgerRepository
	gateway adapter.BillingGateway
	notif   NotificationUseCase
	txm     repository.TransactionManager
	grace   time.Duration
	log     *zerolog.Logger
}

func NewReconcileUseCase(
	subs repository.SubscriptionRepository,
	ledger repository.EventLedgerRepository,
	gateway adapter.BillingGateway,
	notif NotificationUseCase,
	txm repository.TransactionManager,
	grace time.Duration,
	logger *zerolog.Logger,
) *reconcileUC {
	compLog := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		subs:    subs,
		ledger:  ledger,
		gateway: gateway,
		notif:   notif,
		txm:     txm,
		grace:   grace,
		log:     &compLog,
	}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func (uc *reconcileUC) Apply(ctx context.Context, event *model.BillingEvent) error {
	start := time.Now()
	defer func() {
		metrics.ObserveWebhookApply(float64(time.Since(start).Milliseconds()))
	}()

	if event == nil || event.ID == "" {
		return domain.ErrMalformedEvent
	}
	log := uc.log.With().Str("event_id", event.ID).Str("kind", string(event.Kind)).Logger()

	if event.Kind == model.EventKindUnknown {
		metrics.IncWebhookEvent(string(event.Kind), "ignored")
		log.Debug().Msg("unrecognized event kind, acknowledged")
		return nil
	}

	// A session-only event (first event of a lineage) may not carry the
	// processor subscription id yet. Resolve it through a session detail
	// fetch before opening the transaction; network calls do not belong
	// inside it. A redelivery repeats the fetch since the dedup check lives
	// inside the transaction; session-only events are rare enough that the
	// extra call beats moving the ledger read out of the commit scope.
	if event.ExternalSubID == "" && event.CheckoutSessionID != "" {
		sess, err := uc.gateway.GetCheckoutSession(ctx, event.CheckoutSessionID)
		if err != nil {
			log.Warn().Err(err).Msg("session detail fetch failed")
			return domain.ErrUpstream
		}
		event.ExternalSubID = sess.ExternalSubID
	}

	var (
		updated   *model.Subscription
		roleDirty bool
	)

	err := uc.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := uc.ledger.MarkProcessed(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if !fresh {
			metrics.IncWebhookEvent(string(event.Kind), "duplicate")
			log.Debug().Msg("event already applied, skipping")
			return nil
		}

		sub, err := uc.resolve(ctx, tx, event)
		if err != nil {
			return err
		}

		// Serialize concurrent transitions per user, then re-read under the
		// lock so we transition the current row, not a stale one.
		if ptx, ok := tx.(pgx.Tx); ok {
			if _, err := ptx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(sub.UserID)); err != nil {
				return err
			}
			if sub, err = uc.subs.FindByUserID(ctx, tx, sub.UserID); err != nil {
				return err
			}
		}

		changed, notify, err := uc.transition(sub, event)
		if err != nil {
			return err
		}
		if !changed {
			metrics.IncWebhookEvent(string(event.Kind), "noop")
			return nil
		}

		sub.UpdatedAt = time.Now().UTC()
		if err := uc.subs.Update(ctx, tx, sub); err != nil {
			return err
		}
		updated, roleDirty = sub, notify
		metrics.IncWebhookEvent(string(event.Kind), "applied")
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrphanEvent) {
			// No record will ever appear for this event through retries; a
			// record only originates from an authenticated checkout. Ack.
			metrics.IncWebhookEvent(string(event.Kind), "orphan")
			log.Warn().Msg("event references no known subscription, acknowledged")
			return nil
		}
		metrics.IncWebhookEvent(string(event.Kind), "error")
		return err
	}

	// The transition is durably committed; notification failures stay on this
	// side of the boundary.
	if roleDirty && updated != nil {
		uc.notif.Dispatch(ctx, updated.UserID, updated.Role(), updated.RoleExpiry())
	}
	return nil
}

// resolve locates the subscription record the event refers to: by the
// processor subscription id first, then by checkout session id.
func (uc *reconcileUC) resolve(ctx context.Context, tx repository.Tx, event *model.BillingEvent) (*model.Subscription, error) {
	if event.ExternalSubID != "" {
		sub, err := uc.subs.FindByExternalSubID(ctx, tx, event.ExternalSubID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if event.CheckoutSessionID != "" {
		sub, err := uc.subs.FindByCheckoutSessionID(ctx, tx, event.CheckoutSessionID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrOrphanEvent
}

// transition applies the state machine. Period bounds come from the event as
// absolute timestamps and never move backwards, which is what makes
// redelivered and reordered events converge. Returns whether the record
// changed and whether the derived role must be re-announced.
func (uc *reconcileUC) transition(sub *model.Subscription, event *model.BillingEvent) (changed, notify bool, err error) {
	prevRole := sub.Role()

	// The bound id is write-once; an event carrying a different one still
	// applies (it was resolved through the session id), but the divergence
	// is worth surfacing.
	if event.ExternalSubID != "" && sub.ExternalSubID != nil && *sub.ExternalSubID != event.ExternalSubID {
		uc.log.Warn().
			Str("event_id", event.ID).
			Str("bound_sub_id", *sub.ExternalSubID).
			Str("event_sub_id", event.ExternalSubID).
			Msg("event subscription id diverges from the bound one")
	}

	switch event.Kind {
	case model.EventKindCheckoutCompleted:
		// Resolves the session into a subscription id, independent of payment
		// confirmation. No status movement here.
		if event.ExternalSubID != "" && sub.ExternalSubID == nil {
			if err := sub.SetExternalSubID(event.ExternalSubID); err != nil {
				return false, false, err
			}
			changed = true
		}

	case model.EventKindPaymentSucceeded:
		if sub.Terminal() {
			// A stale creation retry after cancellation must not resurrect
			// the lineage; only a fresh checkout restarts it.
			return false, false, nil
		}
		if event.ExternalSubID != "" && sub.ExternalSubID == nil {
			if err := sub.SetExternalSubID(event.ExternalSubID); err != nil {
				return false, false, err
			}
			changed = true
		}
		if sub.Status != model.SubscriptionStatusActive {
			sub.Status = model.SubscriptionStatusActive
			changed = true
		}
		if !event.PeriodStart.IsZero() && event.Reason == model.PaymentReasonInitial {
			sub.StartDate = event.PeriodStart
			changed = true
		}
		if !event.PeriodEnd.IsZero() && event.PeriodEnd.After(sub.EndDate) {
			sub.EndDate = event.PeriodEnd
			changed = true
		}
		if sub.EndDate.Before(sub.StartDate) {
			sub.StartDate = sub.EndDate
		}

	case model.EventKindSubscriptionCanceled, model.EventKindPaymentFailed:
		if sub.Terminal() {
			return false, false, nil
		}
		if time.Now().UTC().After(sub.EndDate.Add(uc.grace)) {
			sub.Status = model.SubscriptionStatusExpired
		} else {
			sub.Status = model.SubscriptionStatusCanceled
		}
		changed = true

	default:
		return false, false, nil
	}

	// Re-announce on any role flip, and on renewals: the users service holds
	// the entitlement expiry, so an extended period must reach it too.
	notify = changed && (sub.Role() != prevRole || sub.Status == model.SubscriptionStatusActive)
	return changed, notify, nil
}
