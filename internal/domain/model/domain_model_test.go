//go:build !integration

// File: internal/domain/model/domain_model_test.go
package model_test

import (
	"errors"
	"testing"
	"time"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
)

func TestNewPendingSubscription(t *testing.T) {
	t.Run("valid input yields a pending record with a provisional period", func(t *testing.T) {
		sub, err := model.NewPendingSubscription("id-1", "user-1", "cs_1", 999, 30*24*time.Hour)
		if err != nil {
			t.Fatalf("NewPendingSubscription: %v", err)
		}
		if sub.Status != model.SubscriptionStatusPending {
			t.Errorf("status = %s, want pending", sub.Status)
		}
		if sub.ExternalSubID != nil {
			t.Errorf("external id set on a fresh record")
		}
		if got := sub.EndDate.Sub(sub.StartDate); got != 30*24*time.Hour {
			t.Errorf("period length = %v", got)
		}
	})

	t.Run("missing identifiers are rejected", func(t *testing.T) {
		cases := []struct {
			name              string
			id, user, session string
		}{
			{"no id", "", "user-1", "cs_1"},
			{"no user", "id-1", "", "cs_1"},
			{"no session", "id-1", "user-1", ""},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := model.NewPendingSubscription(tc.id, tc.user, tc.session, 999, time.Hour); !errors.Is(err, domain.ErrInvalidArgument) {
					t.Fatalf("err = %v, want ErrInvalidArgument", err)
				}
			})
		}
	})
}

func TestSubscriptionTerminal(t *testing.T) {
	cases := []struct {
		status model.SubscriptionStatus
		want   bool
	}{
		{model.SubscriptionStatusPending, false},
		{model.SubscriptionStatusActive, false},
		{model.SubscriptionStatusCanceled, true},
		{model.SubscriptionStatusExpired, true},
	}
	for _, tc := range cases {
		sub := &model.Subscription{Status: tc.status}
		if got := sub.Terminal(); got != tc.want {
			t.Errorf("Terminal() with %s = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestSubscriptionRole(t *testing.T) {
	end := time.Now().UTC().AddDate(0, 1, 0)

	t.Run("active record grants premium with the period end as expiry", func(t *testing.T) {
		sub := &model.Subscription{Status: model.SubscriptionStatusActive, EndDate: end}
		if sub.Role() != model.RolePremium {
			t.Fatalf("role = %s", sub.Role())
		}
		exp := sub.RoleExpiry()
		if exp == nil || !exp.Equal(end) {
			t.Fatalf("expiry = %v, want %v", exp, end)
		}
	})

	t.Run("every other status grants default with no expiry", func(t *testing.T) {
		for _, status := range []model.SubscriptionStatus{
			model.SubscriptionStatusPending,
			model.SubscriptionStatusCanceled,
			model.SubscriptionStatusExpired,
		} {
			sub := &model.Subscription{Status: status, EndDate: end}
			if sub.Role() != model.RoleDefault {
				t.Errorf("role with %s = %s", status, sub.Role())
			}
			if sub.RoleExpiry() != nil {
				t.Errorf("expiry with %s is not nil", status)
			}
		}
	})
}

func TestSetExternalSubID(t *testing.T) {
	t.Run("back-fills once", func(t *testing.T) {
		sub := &model.Subscription{}
		if err := sub.SetExternalSubID("sub_X1"); err != nil {
			t.Fatalf("SetExternalSubID: %v", err)
		}
		if sub.ExternalSubID == nil || *sub.ExternalSubID != "sub_X1" {
			t.Fatalf("id = %v", sub.ExternalSubID)
		}
	})

	t.Run("same id again is a no-op", func(t *testing.T) {
		sub := &model.Subscription{}
		_ = sub.SetExternalSubID("sub_X1")
		if err := sub.SetExternalSubID("sub_X1"); err != nil {
			t.Fatalf("idempotent set failed: %v", err)
		}
	})

	t.Run("different id is rejected", func(t *testing.T) {
		sub := &model.Subscription{}
		_ = sub.SetExternalSubID("sub_X1")
		if err := sub.SetExternalSubID("sub_X2"); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
		if *sub.ExternalSubID != "sub_X1" {
			t.Fatalf("id overwritten to %s", *sub.ExternalSubID)
		}
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		sub := &model.Subscription{}
		if err := sub.SetExternalSubID(""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})
}
