package billing

import (
	"context"

	"github.com/google/uuid"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
)

var _ adapter.BillingGateway = (*NoopGateway)(nil)

// NoopGateway is a stand-in for local development: every checkout succeeds
// with a fake session and webhook verification is refused.
type NoopGateway struct{}

func NewNoopGateway() *NoopGateway { return &NoopGateway{} }

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) CreateCheckoutSession(ctx context.Context, userID string) (*adapter.CheckoutSession, error) {
	id := "cs_noop_" + uuid.NewString()
	return &adapter.CheckoutSession{ID: id, URL: "https://example.invalid/checkout/" + id}, nil
}

func (g *NoopGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{ID: sessionID, URL: ""}, nil
}

func (g *NoopGateway) VerifyEvent(payload []byte, sigHeader string) (*model.BillingEvent, error) {
	return nil, domain.ErrInvalidSignature
}
