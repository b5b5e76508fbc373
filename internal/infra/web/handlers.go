package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"picturas-subscriptions/internal/domain"
	"picturas-subscriptions/internal/domain/model"
	"picturas-subscriptions/internal/infra/logging"
	red "picturas-subscriptions/internal/infra/redis"
)

const maxWebhookBody = 1 << 16 // processor events are small

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)
	if identity == nil || identity.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, red.CheckoutRateKey(identity.UserID), checkoutRateLimit, checkoutRateWindow)
		if err != nil {
			logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		} else if !ok {
			writeError(w, http.StatusTooManyRequests, "too many checkout attempts")
			return
		}
	}

	url, err := s.checkoutUC.InitiateCheckout(ctx, identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "missing user id")
		default:
			// Upstream and persistence failures alike: the caller retries the
			// checkout flow.
			writeError(w, http.StatusInternalServerError, "checkout failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	// Verification runs over the raw bytes; nothing is parsed before the
	// signature checks out.
	event, err := s.gateway.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			writeError(w, http.StatusBadRequest, "invalid signature")
		case errors.Is(err, domain.ErrMalformedEvent):
			writeError(w, http.StatusBadRequest, "malformed event")
		default:
			writeError(w, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	ctx = logging.WithEventID(ctx, event.ID)
	if err := s.reconcileUC.Apply(ctx, event); err != nil {
		// Non-2xx makes the processor redeliver; Apply guarantees the failed
		// attempt left no partial state behind.
		logging.With(ctx, s.log).Error().Err(err).Msg("event processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	w.WriteHeader(http.StatusOK)
}

type subscriptionResponse struct {
	ID        string     `json:"id"`
	Price     int64      `json:"price"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Status    string     `json:"status"`
	Role      string     `json:"role"`
	ExpiresOn *time.Time `json:"expires_on"`
}

func (s *Server) handleGetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFrom(ctx)
	if identity == nil || identity.UserID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	sub, err := s.subUC.GetByUser(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no subscription")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func toSubscriptionResponse(sub *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:        sub.ID,
		Price:     sub.Price,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
		Status:    string(sub.Status),
		Role:      sub.Role(),
		ExpiresOn: sub.RoleExpiry(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
