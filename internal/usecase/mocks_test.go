//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memSubscriptionRepo is a small in-memory implementation used by unit tests.
// Upsert mirrors the ON CONFLICT semantics of the Postgres repo.
type memSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription // by user id

	UpsertErr error
	UpdateErr error
	ExpireErr error

	// FindExpiredHook runs after the batch snapshot is taken, outside the
	// lock, so tests can interleave a concurrent transition.
	FindExpiredHook func()
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Upsert(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.store[sub.UserID]; ok {
		cur.CheckoutSessionID = sub.CheckoutSessionID
		cur.Price = sub.Price
		cur.StartDate = sub.StartDate
		cur.EndDate = sub.EndDate
		if cur.Terminal() {
			cur.Status = model.SubscriptionStatusPending
		}
		cur.UpdatedAt = sub.UpdatedAt
		return nil
	}
	cp := *sub
	m.store[sub.UserID] = &cp
	return nil
}

func (m *memSubscriptionRepo) Update(ctx context.Context, tx repository.Tx, sub *model.Subscription) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[sub.UserID]; !ok {
		return domain.ErrNotFound
	}
	cp := *sub
	m.store[sub.UserID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindByCheckoutSessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.CheckoutSessionID == sessionID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) FindByExternalSubID(ctx context.Context, tx repository.Tx, externalSubID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.ExternalSubID != nil && *s.ExternalSubID == externalSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) FindExpired(ctx context.Context, tx repository.Tx, cutoff time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(cutoff) {
			cp := *s
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	m.mu.RUnlock()
	if m.FindExpiredHook != nil {
		m.FindExpiredHook()
	}
	return out, nil
}

func (m *memSubscriptionRepo) ExpireIfLapsed(ctx context.Context, tx repository.Tx, id string, cutoff time.Time) (bool, error) {
	if m.ExpireErr != nil {
		return false, m.ExpireErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ID != id {
			continue
		}
		if s.Status == model.SubscriptionStatusActive && s.EndDate.Before(cutoff) {
			s.Status = model.SubscriptionStatusExpired
			s.UpdatedAt = time.Now().UTC()
			return true, nil
		}
		return false, nil
	}
	return false, nil
}

func (m *memSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[model.SubscriptionStatus]int)
	for _, s := range m.store {
		counts[s.Status]++
	}
	return counts, nil
}

// memEventLedger records processed event ids in memory.
type memEventLedger struct {
	mu   sync.Mutex
	seen map[string]bool

	MarkErr error
}

func newMemEventLedger() *memEventLedger {
	return &memEventLedger{seen: make(map[string]bool)}
}

func (m *memEventLedger) MarkProcessed(ctx context.Context, tx repository.Tx, eventID string) (bool, error) {
	if m.MarkErr != nil {
		return false, m.MarkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// memOutbox stores failed notifications.
type memOutbox struct {
	mu    sync.Mutex
	store map[string]*model.RoleNotification

	SaveErr error
}

func newMemOutbox() *memOutbox {
	return &memOutbox{store: make(map[string]*model.RoleNotification)}
}

func (m *memOutbox) SaveFailed(ctx context.Context, tx repository.Tx, n *model.RoleNotification) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *n
	m.store[n.ID] = &cp
	return nil
}

func (m *memOutbox) ListPending(ctx context.Context, tx repository.Tx, maxAttempts, limit int) ([]*model.RoleNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.RoleNotification
	for _, n := range m.store {
		if n.Attempts < maxAttempts {
			cp := *n
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memOutbox) MarkDelivered(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
	return nil
}

func (m *memOutbox) BumpAttempt(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.store[id]; ok {
		n.Attempts++
		n.LastTried = &at
	}
	return nil
}

func (m *memOutbox) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// mockGateway fakes the payment processor.
type mockGateway struct {
	CreateFunc func(ctx context.Context, userID string) (*adapter.CheckoutSession, error)
	GetFunc    func(ctx context.Context, sessionID string) (*adapter.CheckoutSession, error)
	VerifyFunc func(payload []byte, sigHeader string) (*model.BillingEvent, error)
}

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, userID string) (*adapter.CheckoutSession, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID)
	}
	return &adapter.CheckoutSession{ID: "cs_" + userID, URL: "https://pay.example/" + userID}, nil
}

func (m *mockGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*adapter.CheckoutSession, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID)
	}
	return &adapter.CheckoutSession{ID: sessionID}, nil
}

func (m *mockGateway) VerifyEvent(payload []byte, sigHeader string) (*model.BillingEvent, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(payload, sigHeader)
	}
	return nil, domain.ErrInvalidSignature
}

// mockNotifier counts calls and can be told to fail.
type mockNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

type notifierCall struct {
	userID    string
	role      string
	expiresOn *time.Time
}

func (m *mockNotifier) Notify(ctx context.Context, userID, role string, expiresOn *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifierCall{userID: userID, role: role, expiresOn: expiresOn})
	return m.err
}

func (m *mockNotifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockNotifier) lastCall() notifierCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

// mockLocker always grants the lock.
type mockLocker struct {
	TryLockFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, key, ttl)
	}
	return "token", nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// mockTxManager runs the callback without a real transaction; repositories
// accept the nil tx.
type mockTxManager struct{}

func (m *mockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}
