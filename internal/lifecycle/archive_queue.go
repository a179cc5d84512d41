// Package lifecycle contains the batch processors that move world records
// through their lifecycle: the rate-limited archive queue and the legacy
// data migration.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/worldhost/internal/eventstore"
	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
	"git.home.luguber.info/inful/worldhost/internal/notify"
	"git.home.luguber.info/inful/worldhost/internal/storage"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// Report summarizes one batch run. Only successes are counted; failed
// items are logged and skipped, never retried.
type Report struct {
	Total     int
	Succeeded int
}

// ArchiveQueue processes archive targets strictly one at a time with a
// fixed pause between items, so at most one storage relocation is in
// flight and the host gets control back between items.
type ArchiveQueue struct {
	worlds   *world.Repository
	store    storage.WorldStorage
	delay    time.Duration
	recorder metrics.Recorder
	events   eventstore.Store
	notifier notify.Publisher
}

// NewArchiveQueue creates a queue over the given repository and storage
// capability. Metrics, audit log, and notifier default to no-ops.
func NewArchiveQueue(worlds *world.Repository, store storage.WorldStorage, delay time.Duration) *ArchiveQueue {
	return &ArchiveQueue{
		worlds:   worlds,
		store:    store,
		delay:    delay,
		recorder: metrics.NoopRecorder{},
		notifier: notify.NoopPublisher{},
	}
}

// SetRecorder injects a metrics recorder.
func (q *ArchiveQueue) SetRecorder(rec metrics.Recorder) {
	if rec != nil {
		q.recorder = rec
	}
}

// SetEventStore injects the lifecycle audit log.
func (q *ArchiveQueue) SetEventStore(store eventstore.Store) {
	q.events = store
}

// SetNotifier injects the lifecycle event publisher.
func (q *ArchiveQueue) SetNotifier(pub notify.Publisher) {
	if pub != nil {
		q.notifier = pub
	}
}

// Run archives each target in order. A failed item is logged and skipped;
// the queue moves on to the next target after the configured delay either
// way. Cancelling the context stops the queue between items.
func (q *ArchiveQueue) Run(ctx context.Context, targets []*world.Record) Report {
	report := Report{Total: len(targets)}
	if len(targets) == 0 {
		return report
	}

	slog.Info("Archive queue started", logfields.Count(len(targets)))

	for i, rec := range targets {
		if ctx.Err() != nil {
			slog.Warn("Archive queue stopped early",
				"processed", i,
				logfields.Count(len(targets)))
			return report
		}

		if q.archiveOne(ctx, rec) {
			report.Succeeded++
		}

		if i < len(targets)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(q.delay):
			}
		}
	}

	slog.Info("Archive queue finished",
		"succeeded", report.Succeeded,
		logfields.Count(report.Total))
	return report
}

// RunExpired archives every non-archived world whose expiration date has
// passed. Used by the daily maintenance job and the admin trigger.
func (q *ArchiveQueue) RunExpired(ctx context.Context, now time.Time) Report {
	var targets []*world.Record
	for _, rec := range q.worlds.FindAll() {
		if !rec.Archived && rec.IsExpired(now) {
			targets = append(targets, rec)
		}
	}
	return q.Run(ctx, targets)
}

func (q *ArchiveQueue) archiveOne(ctx context.Context, rec *world.Record) bool {
	dir := rec.DirectoryName()
	start := time.Now()
	err := <-q.store.ArchiveAsync(ctx, dir)
	elapsed := time.Since(start)

	q.recorder.ObserveArchiveDuration(elapsed)

	if err != nil {
		q.recorder.IncArchiveOutcome(false)
		slog.Error("Failed to archive world storage",
			logfields.WorldID(rec.UUID),
			logfields.File(dir),
			logfields.Error(err))
		return false
	}

	rec.Archived = true
	if err := q.worlds.Save(rec); err != nil {
		// Storage already moved; the flag will be set again on the
		// next pass since the record still reads as expired.
		slog.Error("Failed to persist archived flag",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}

	q.recorder.IncArchiveOutcome(true)
	q.appendArchiveEvent(ctx, rec, dir, elapsed)

	if err := q.notifier.WorldArchived(rec.UUID, rec.Name); err != nil {
		slog.Warn("Failed to publish archive event",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}

	slog.Info("Archived world",
		logfields.WorldID(rec.UUID),
		logfields.WorldName(rec.Name),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return true
}

func (q *ArchiveQueue) appendArchiveEvent(ctx context.Context, rec *world.Record, dir string, elapsed time.Duration) {
	if q.events == nil {
		return
	}
	event, err := eventstore.NewWorldArchived(rec.UUID, eventstore.WorldArchivedMeta{
		Directory:  dir,
		DurationMS: elapsed.Milliseconds(),
	})
	if err == nil {
		err = q.events.Append(ctx, event.EventWorldID, event.EventType, event.EventPayload, nil)
	}
	if err != nil {
		slog.Warn("Failed to record archive event",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}
}
