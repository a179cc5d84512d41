package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// WorldCreatedMeta contains typed metadata for world creation events.
type WorldCreatedMeta struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Template string `json:"template,omitempty"`
}

// NewWorldCreated creates a WorldCreated event with typed metadata.
func NewWorldCreated(worldID string, meta WorldCreatedMeta) (*BaseEvent, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal WorldCreated payload: %w", err)
	}
	return &BaseEvent{
		EventWorldID:   worldID,
		EventType:      TypeWorldCreated,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// WorldArchivedMeta contains typed metadata for archive events.
type WorldArchivedMeta struct {
	Directory  string `json:"directory"`
	DurationMS int64  `json:"duration_ms"`
}

// NewWorldArchived creates a WorldArchived event.
func NewWorldArchived(worldID string, meta WorldArchivedMeta) (*BaseEvent, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal WorldArchived payload: %w", err)
	}
	return &BaseEvent{
		EventWorldID:   worldID,
		EventType:      TypeWorldArchived,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}

// WorldMigratedMeta contains typed metadata for legacy import events.
type WorldMigratedMeta struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// NewWorldMigrated creates a WorldMigrated event.
func NewWorldMigrated(worldID string, meta WorldMigratedMeta) (*BaseEvent, error) {
	payload, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal WorldMigrated payload: %w", err)
	}
	return &BaseEvent{
		EventWorldID:   worldID,
		EventType:      TypeWorldMigrated,
		EventTimestamp: time.Now(),
		EventPayload:   payload,
	}, nil
}
