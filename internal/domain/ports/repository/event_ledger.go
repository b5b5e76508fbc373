package repository

import "context"

// EventLedgerRepository records processor event ids that have been applied.
// Webhook delivery is at-least-once; the ledger makes redelivery a no-op.
type EventLedgerRepository interface {
	// MarkProcessed inserts the event id and reports whether it was newly
	// recorded. false means the event was already applied by an earlier
	// delivery. Must run inside the same transaction as the state change it
	// guards.
	MarkProcessed(ctx context.Context, tx Tx, eventID string) (bool, error)
}
