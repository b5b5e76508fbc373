package model

import "time"

// EventKind is the closed set of processor notifications the reconciler
// understands. Anything else maps to EventKindUnknown and is acknowledged
// without a transition.
type EventKind string

const (
	// EventKindCheckoutCompleted resolves a checkout session into a processor
	// subscription id, independent of payment confirmation.
	EventKindCheckoutCompleted EventKind = "checkout.session.completed"
	// EventKindPaymentSucceeded covers both the initial invoice and renewals;
	// Reason distinguishes them.
	EventKindPaymentSucceeded EventKind = "invoice.payment_succeeded"
	// EventKindSubscriptionCanceled covers cancellation and terminal payment
	// failure.
	EventKindSubscriptionCanceled EventKind = "customer.subscription.deleted"
	// EventKindPaymentFailed is a non-terminal payment failure notice.
	EventKindPaymentFailed EventKind = "invoice.payment_failed"

	EventKindUnknown EventKind = "unknown"
)

type PaymentReason string

const (
	PaymentReasonInitial PaymentReason = "subscription_create"
	PaymentReasonRenewal PaymentReason = "subscription_cycle"
)

// BillingEvent is a verified, normalized webhook event. It is only ever
// constructed by the webhook verifier, after signature verification.
type BillingEvent struct {
	ID                string // processor event id, ledger key
	Kind              EventKind
	ExternalSubID     string // empty on early session events
	CheckoutSessionID string // empty once the processor switches to sub ids
	Reason            PaymentReason
	// Absolute billing-period bounds from the event payload. Absolute spans
	// keep redelivery and reordering convergent: transitions take max(end),
	// never add deltas.
	PeriodStart time.Time
	PeriodEnd   time.Time
	ReceivedAt  time.Time
}
