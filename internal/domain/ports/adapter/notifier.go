package adapter

import (
	"context"
	"time"
)

// RoleNotifier pushes a user's current entitlement role to the users service.
// Delivery is best-effort: implementations log failures and return an error
// the caller may record for retry, but reconciliation never depends on it.
type RoleNotifier interface {
	Notify(ctx context.Context, userID, role string, expiresOn *time.Time) error
}
