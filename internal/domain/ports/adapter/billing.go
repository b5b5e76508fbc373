package adapter

import (
	"context"

	"picturas-subscriptions/internal/domain/model"
)

// CheckoutSession is the processor-issued handle for an in-progress payment
// setup.
type CheckoutSession struct {
	ID  string
	URL string // redirect target for the user
	// ExternalSubID is the processor subscription id, empty until the session
	// resolves into a subscription.
	ExternalSubID string
}

// BillingGateway is the hex port for the payment processor. The processor is
// an opaque remote capability: failures surface as domain.ErrUpstream, forged
// or stale webhook payloads as domain.ErrInvalidSignature.
type BillingGateway interface {
	Name() string

	// CreateCheckoutSession opens a subscription-mode checkout session for the
	// configured price and redirect targets.
	CreateCheckoutSession(ctx context.Context, userID string) (*CheckoutSession, error)

	// GetCheckoutSession retrieves session detail, used to resolve a session
	// id into the processor subscription id.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// VerifyEvent authenticates a raw webhook payload against the signing
	// secret before any decoding, then maps it to the closed event union.
	VerifyEvent(payload []byte, sigHeader string) (*model.BillingEvent, error)
}
