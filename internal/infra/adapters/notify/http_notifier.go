// File: internal/infra/adapters/notify/http_notifier.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"picturas-subscriptions/internal/domain/ports/adapter"
	"picturas-subscriptions/internal/infra/metrics"
)

var _ adapter.RoleNotifier = (*HTTPNotifier)(nil)

// HTTPNotifier pushes entitlement updates to the users service over plain
// HTTP. A circuit breaker keeps a dead users service from tying up webhook
// handlers; when it is open the notifier fails fast and the outbox worker
// retries later.
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[struct{}]
	log      *zerolog.Logger
}

func NewHTTPNotifier(endpoint string, timeout time.Duration, logger *zerolog.Logger) *HTTPNotifier {
	compLog := logger.With().Str("component", "HTTPNotifier").Logger()
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "users-service",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker:  breaker,
		log:      &compLog,
	}
}

type rolePayload struct {
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	ExpiresOn *time.Time `json:"expires_on"`
}

func (n *HTTPNotifier) Notify(ctx context.Context, userID, role string, expiresOn *time.Time) error {
	body, err := json.Marshal(rolePayload{UserID: userID, Role: role, ExpiresOn: expiresOn})
	if err != nil {
		return err
	}

	_, err = n.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("users service returned %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		metrics.IncNotification("failed")
		n.log.Warn().Err(err).Str("user_id", userID).Str("role", role).Msg("role notification failed")
		return err
	}
	metrics.IncNotification("sent")
	n.log.Debug().Str("user_id", userID).Str("role", role).Msg("role notification sent")
	return nil
}
