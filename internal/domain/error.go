package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Authentication / authenticity
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// Webhook processing
	ErrMalformedEvent = errors.New("malformed event payload")
	ErrOrphanEvent    = errors.New("event references unknown subscription")

	// External/infra failures (retryable)
	ErrUpstream    = errors.New("payment processor request failed")
	ErrPersistence = errors.New("subscription store operation failed")

	// Storage-layer internals
	ErrInvalidExecContext = errors.New("invalid execution context for query")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Concurrency
	ErrLockNotAcquired = errors.New("could not acquire lock")
)
