//go:build !integration

// File: internal/infra/web/mock_test.go
package web_test

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type mockCheckoutUC struct {
	InitiateCheckoutFunc func(ctx context.Context, userID string) (string, error)
}

func (m *mockCheckoutUC) InitiateCheckout(ctx context.Context, userID string) (string, error) {
	if m.InitiateCheckoutFunc != nil {
		return m.InitiateCheckoutFunc(ctx, userID)
	}
	return "https://pay.example/" + userID, nil
}

type mockReconcileUC struct {
	ApplyFunc func(ctx context.Context, event *model.BillingEvent) error
	applied   []*model.BillingEvent
}

func (m *mockReconcileUC) Apply(ctx context.Context, event *model.BillingEvent) error {
	m.applied = append(m.applied, event)
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, event)
	}
	return nil
}

type mockSubscriptionUC struct {
	GetByUserFunc func(ctx context.Context, userID string) (*model.Subscription, error)
}

func (m *mockSubscriptionUC) GetByUser(ctx context.Context, userID string) (*model.Subscription, error) {
	if m.GetByUserFunc != nil {
		return m.GetByUserFunc(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSubscriptionUC) FinishExpired(ctx context.Context) (int, error) { return 0, nil }

func (m *mockSubscriptionUC) RefreshStatusMetrics(ctx context.Context) error { return nil }

type mockGateway struct {
	VerifyFunc func(payload []byte, sigHeader string) (*model.BillingEvent, error)
}

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, userID string) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{ID: "cs_" + userID, URL: "https://pay.example/" + userID}, nil
}

func (m *mockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*adapter.CheckoutSession, error) {
	return &adapter.CheckoutSession{ID: sessionID}, nil
}

func (m *mockGateway) VerifyEvent(payload []byte, sigHeader string) (*model.BillingEvent, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(payload, sigHeader)
	}
	return &model.BillingEvent{ID: "evt_1", Kind: model.EventKindUnknown, ReceivedAt: time.Now().UTC()}, nil
}
