package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/worldhost/internal/config"
)

// NATSPublisher publishes lifecycle events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSPublisher connects to NATS and prepares the JetStream context.
func NewNATSPublisher(cfg config.NATSConfig) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("event publishing is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS publisher initialized for lifecycle events",
		"url", cfg.URL,
		"subject", cfg.Subject)

	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject}, nil
}

func (p *NATSPublisher) publish(event *LifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	slog.Debug("Published lifecycle event",
		"type", event.Type,
		"world_id", event.WorldID)
	return nil
}

// WorldCreated publishes a world creation event.
func (p *NATSPublisher) WorldCreated(worldID, name, owner string) error {
	return p.publish(&LifecycleEvent{Type: "created", WorldID: worldID, WorldName: name, Owner: owner})
}

// WorldArchived publishes a world archive event.
func (p *NATSPublisher) WorldArchived(worldID, name string) error {
	return p.publish(&LifecycleEvent{Type: "archived", WorldID: worldID, WorldName: name})
}

// WorldDeleted publishes a world deletion event.
func (p *NATSPublisher) WorldDeleted(worldID, name string) error {
	return p.publish(&LifecycleEvent{Type: "deleted", WorldID: worldID, WorldName: name})
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
