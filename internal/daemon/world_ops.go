package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/worldhost/internal/eventstore"
	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// CreateWorld is the record-level creation operation: charge the owner the
// base creation cost, persist the record, register it on the owner's stats,
// and emit the lifecycle event. The physical world storage is provisioned
// by the external creation flow before or after this call.
func (d *Daemon) CreateWorld(ctx context.Context, rec *world.Record) error {
	if _, err := uuid.Parse(rec.UUID); err != nil {
		return fmt.Errorf("invalid world uuid: %w", err)
	}
	if rec.Owner == "" {
		return fmt.Errorf("world %s has no owner", rec.UUID)
	}
	if _, exists := d.worlds.FindByUUID(rec.UUID); exists {
		return fmt.Errorf("world %s already exists", rec.UUID)
	}

	cost := d.ledger.CreationCost()
	if err := d.ledger.Charge(rec.Owner, cost); err != nil {
		return err
	}

	rec.PointCost = cost
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.PublishLevel == "" {
		rec.PublishLevel = world.PublishPrivate
	}

	if err := d.worlds.Save(rec); err != nil {
		// Creation failed after the charge; give the points back.
		if rerr := d.ledger.Refund(rec.Owner, cost); rerr != nil {
			slog.Error("Failed to refund creation cost",
				logfields.PlayerID(rec.Owner),
				logfields.Error(rerr))
		}
		return err
	}
	d.recorder.SetWorldCount(d.worlds.Count())

	if s, err := d.stats.FindByUUID(rec.Owner); err == nil {
		s.RegisterWorld(rec.UUID)
		if err := d.stats.Save(s); err != nil {
			slog.Error("Failed to register world on owner stats",
				logfields.WorldID(rec.UUID),
				logfields.PlayerID(rec.Owner),
				logfields.Error(err))
		}
	}

	d.appendCreatedEvent(ctx, rec)
	if err := d.notifier.WorldCreated(rec.UUID, rec.Name, rec.Owner); err != nil {
		slog.Warn("Failed to publish creation event",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}

	slog.Info("Created world",
		logfields.WorldID(rec.UUID),
		logfields.WorldName(rec.Name),
		logfields.PlayerID(rec.Owner))
	return nil
}

// DeleteWorld hard-deletes a world: the record and its file, the backing
// storage, the owner's stats references, and any spotlight entry. Unlike
// archiving this is irreversible.
func (d *Daemon) DeleteWorld(ctx context.Context, id string) error {
	rec, ok := d.worlds.FindByUUID(id)
	if !ok {
		return fmt.Errorf("world %s not found", id)
	}

	if err := d.worlds.Delete(id); err != nil {
		return err
	}
	d.recorder.SetWorldCount(d.worlds.Count())

	if err := d.store.Delete(rec.DirectoryName()); err != nil {
		slog.Error("Failed to delete world storage",
			logfields.WorldID(id),
			logfields.File(rec.DirectoryName()),
			logfields.Error(err))
	}

	if err := d.spotlight.Remove(id); err != nil {
		slog.Warn("Failed to remove world from spotlight",
			logfields.WorldID(id),
			logfields.Error(err))
	}

	if s, err := d.stats.FindByUUID(rec.Owner); err == nil {
		s.UnregisterWorld(id)
		if err := d.stats.Save(s); err != nil {
			slog.Error("Failed to unregister world from owner stats",
				logfields.WorldID(id),
				logfields.PlayerID(rec.Owner),
				logfields.Error(err))
		}
	}

	if d.events != nil {
		if err := d.events.Append(ctx, id, eventstore.TypeWorldDeleted, []byte(`{}`), nil); err != nil {
			slog.Warn("Failed to record deletion event",
				logfields.WorldID(id),
				logfields.Error(err))
		}
	}
	if err := d.notifier.WorldDeleted(id, rec.Name); err != nil {
		slog.Warn("Failed to publish deletion event",
			logfields.WorldID(id),
			logfields.Error(err))
	}

	slog.Info("Deleted world",
		logfields.WorldID(id),
		logfields.WorldName(rec.Name))
	return nil
}

func (d *Daemon) appendCreatedEvent(ctx context.Context, rec *world.Record) {
	if d.events == nil {
		return
	}
	event, err := eventstore.NewWorldCreated(rec.UUID, eventstore.WorldCreatedMeta{
		Name:     rec.Name,
		Owner:    rec.Owner,
		Template: rec.TemplateID,
	})
	if err == nil {
		err = d.events.Append(ctx, event.EventWorldID, event.EventType, event.EventPayload, nil)
	}
	if err != nil {
		slog.Warn("Failed to record creation event",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}
}
