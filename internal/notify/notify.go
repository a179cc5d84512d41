// Package notify publishes world lifecycle events to external consumers.
// The publisher is a capability chosen at startup: real NATS when
// configured, a no-op otherwise.
package notify

import "time"

// LifecycleEvent is the wire form of one published lifecycle event.
type LifecycleEvent struct {
	Type      string    `json:"type"` // created | archived | deleted
	WorldID   string    `json:"world_id"`
	WorldName string    `json:"world_name,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits lifecycle events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	WorldCreated(worldID, name, owner string) error
	WorldArchived(worldID, name string) error
	WorldDeleted(worldID, name string) error
	Close() error
}

// NoopPublisher is the null-object implementation used when event
// publishing is not configured.
type NoopPublisher struct{}

func (NoopPublisher) WorldCreated(string, string, string) error { return nil }
func (NoopPublisher) WorldArchived(string, string) error        { return nil }
func (NoopPublisher) WorldDeleted(string, string) error         { return nil }
func (NoopPublisher) Close() error                              { return nil }
