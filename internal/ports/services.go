// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrStorage, etc.)
//   - Methods represent business operations, not CRUD operations
//   - Keep interfaces small and focused (Interface Segregation Principle)
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// KeyValue defines the contract for the string-keyed stores backing the
// quote collection and its sync bookkeeping. The persistent implementation
// survives restarts; the session implementation lives only for the process.
//
// Values are plain strings: serialized quote collections use the storage
// format in the domain codec, instants are ISO-8601 strings, booleans are
// "true"/"false".
type KeyValue interface {
	// Get retrieves the value for key.
	// Returns domain.ErrNotFound if the key does not exist and
	// domain.ErrStorage if the store cannot be read.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	// Returns domain.ErrStorage on write failure; callers treat that as
	// non-fatal and keep their in-memory state authoritative.
	Set(ctx context.Context, key, value string) error

	// Has reports whether key exists without reading its value.
	Has(ctx context.Context, key string) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// RemoteQuotes defines the contract for the remote sync endpoint.
// Adapters translate the external record shape into domain quotes.
type RemoteQuotes interface {
	// FetchSnapshot retrieves the remote quote snapshot, already mapped
	// into domain quotes and capped at the fetch limit.
	// Returns domain.ErrUnavailable on transport failure or a non-success
	// response; no local state is touched in that case.
	FetchSnapshot(ctx context.Context) ([]*domain.Quote, error)

	// PushSnapshot uploads the full local collection with a timestamp.
	// Push is best-effort: callers report failure but continue the cycle.
	PushSnapshot(ctx context.Context, quotes []*domain.Quote, at time.Time) error
}

// EventPublisher defines the contract for publishing domain events.
// Implementations may use message queues, event buses, or other mechanisms.
type EventPublisher interface {
	// Publish sends an event to the configured destination.
	// Returns domain.ErrUnavailable if the messaging system is unreachable.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event that can be published.
type Event interface {
	// EventType returns the type identifier for routing.
	EventType() string

	// Payload returns the event data for serialization.
	Payload() any
}
