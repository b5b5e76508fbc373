// File: internal/infra/adapters/billing/stripe_gateway.go
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"picturas-subscriptions/internal/config"
	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
)

var _ adapter.BillingGateway = (*StripeGateway)(nil)

// StripeGateway implements adapter.BillingGateway against the Stripe API:
// checkout sessions for initiation, signed webhook events for reconciliation.
type StripeGateway struct {
	cfg config.StripeConfig
}

// NewStripeGateway sets the package-level API key; one gateway per process.
func NewStripeGateway(cfg config.StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" || cfg.WebhookSecret == "" || cfg.PriceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	stripe.Key = cfg.SecretKey
	return &StripeGateway{cfg: cfg}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, userID string) (*adapter.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(userID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, wrapUpstream(err)
	}
	return mapSession(sess), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*adapter.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, wrapUpstream(err)
	}
	return mapSession(sess), nil
}

// VerifyEvent checks the signature over the raw payload bytes before anything
// is decoded. Unauthenticated bytes never reach a JSON parser.
func (g *StripeGateway) VerifyEvent(payload []byte, sigHeader string) (*model.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureErr(err) {
			return nil, domain.ErrInvalidSignature
		}
		return nil, domain.ErrMalformedEvent
	}
	return mapEvent(&event)
}

func mapSession(sess *stripe.CheckoutSession) *adapter.CheckoutSession {
	out := &adapter.CheckoutSession{ID: sess.ID, URL: sess.URL}
	if sess.Subscription != nil {
		out.ExternalSubID = sess.Subscription.ID
	}
	return out
}

func mapEvent(event *stripe.Event) (*model.BillingEvent, error) {
	be := &model.BillingEvent{
		ID:         event.ID,
		ReceivedAt: time.Now().UTC(),
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, domain.ErrMalformedEvent
		}
		be.Kind = model.EventKindCheckoutCompleted
		be.CheckoutSessionID = sess.ID
		if sess.Subscription != nil {
			be.ExternalSubID = sess.Subscription.ID
		}

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, domain.ErrMalformedEvent
		}
		if event.Type == "invoice.payment_succeeded" {
			be.Kind = model.EventKindPaymentSucceeded
		} else {
			be.Kind = model.EventKindPaymentFailed
		}
		if inv.Subscription != nil {
			be.ExternalSubID = inv.Subscription.ID
		}
		be.Reason = model.PaymentReason(inv.BillingReason)
		be.PeriodStart, be.PeriodEnd = invoicePeriod(&inv)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, domain.ErrMalformedEvent
		}
		be.Kind = model.EventKindSubscriptionCanceled
		be.ExternalSubID = sub.ID

	default:
		be.Kind = model.EventKindUnknown
	}
	return be, nil
}

// invoicePeriod prefers the subscription line period over the invoice-level
// one; the line carries the billed service span.
func invoicePeriod(inv *stripe.Invoice) (time.Time, time.Time) {
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period != nil && line.Period.End > 0 {
				return time.Unix(line.Period.Start, 0).UTC(), time.Unix(line.Period.End, 0).UTC()
			}
		}
	}
	return time.Unix(inv.PeriodStart, 0).UTC(), time.Unix(inv.PeriodEnd, 0).UTC()
}

func isSignatureErr(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld) ||
		errors.Is(err, webhook.ErrInvalidHeader)
}

func wrapUpstream(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		// Rate limits and 5xx are retryable, but the caller treats every
		// processor failure as retryable anyway.
		return domain.ErrUpstream
	}
	return domain.ErrUpstream
}
