package model

import "time"

// RoleNotification is a pending (or failed-and-to-be-retried) entitlement
// update for the users service.
type RoleNotification struct {
	ID        string // UUID
	UserID    string
	Role      string
	ExpiresOn *time.Time // nil unless Role == RolePremium
	Attempts  int
	CreatedAt time.Time
	LastTried *time.Time
}
