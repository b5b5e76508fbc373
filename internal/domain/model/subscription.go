package model

import (
	"time"

	"picturas-subscriptions/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Roles reported to the users service.
const (
	RolePremium = "premium"
	RoleDefault = "default"
)

// Subscription is the single persisted entity: one row per user, reconciled
// against processor webhook events.
type Subscription struct {
	ID                string // UUID, surrogate key, immutable
	UserID            string // UUID of user, unique
	CheckoutSessionID string // most recent checkout session, overwritten on re-checkout
	ExternalSubID     *string
	Price             int64 // minor units, informational
	StartDate         time.Time
	EndDate           time.Time
	Status            SubscriptionStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPendingSubscription creates the initial record for a user starting
// checkout. The end date is provisional until the reconciler sees a verified
// payment event.
func NewPendingSubscription(id, userID, sessionID string, price int64, billingPeriod time.Duration) (*Subscription, error) {
	if id == "" || userID == "" || sessionID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Subscription{
		ID:                id,
		UserID:            userID,
		CheckoutSessionID: sessionID,
		Price:             price,
		StartDate:         now,
		EndDate:           now.Add(billingPeriod),
		Status:            SubscriptionStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Terminal reports whether the record's lineage has ended; a fresh checkout
// restarts it at pending.
func (s *Subscription) Terminal() bool {
	return s.Status == SubscriptionStatusCanceled || s.Status == SubscriptionStatusExpired
}

// Role derives the entitlement role the users service should hold for this
// record's owner.
func (s *Subscription) Role() string {
	if s.Status == SubscriptionStatusActive {
		return RolePremium
	}
	return RoleDefault
}

// RoleExpiry returns the entitlement expiry to report alongside Role:
// the current period end while active, nil otherwise.
func (s *Subscription) RoleExpiry() *time.Time {
	if s.Status == SubscriptionStatusActive {
		end := s.EndDate
		return &end
	}
	return nil
}

// SetExternalSubID back-fills the processor's subscription id. The id is
// write-once: setting a different id on a record that already has one fails.
func (s *Subscription) SetExternalSubID(id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	if s.ExternalSubID != nil {
		if *s.ExternalSubID != id {
			return domain.ErrInvalidArgument
		}
		return nil
	}
	s.ExternalSubID = &id
	return nil
}
