package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving lifecycle events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, worldID, eventType string, payload []byte, metadata map[string]string) error

	// GetByWorldID retrieves all events for a specific world.
	GetByWorldID(ctx context.Context, worldID string) ([]Event, error)

	// GetRange retrieves events within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
