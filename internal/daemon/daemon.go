// Package daemon is the composition root: it constructs every repository,
// registry, and capability once at process start and owns their lifecycle
// (init, reload, shutdown) explicitly instead of through ambient state.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/economy"
	"git.home.luguber.info/inful/worldhost/internal/eventstore"
	"git.home.luguber.info/inful/worldhost/internal/lifecycle"
	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
	"git.home.luguber.info/inful/worldhost/internal/notify"
	"git.home.luguber.info/inful/worldhost/internal/portal"
	"git.home.luguber.info/inful/worldhost/internal/session"
	"git.home.luguber.info/inful/worldhost/internal/spotlight"
	"git.home.luguber.info/inful/worldhost/internal/stats"
	"git.home.luguber.info/inful/worldhost/internal/storage"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// Status represents the current daemon state.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusStopped  Status = "stopped"
)

// Daemon wires the data layer together and runs the background machinery
// around it: scheduled maintenance, config watching, the admin API.
type Daemon struct {
	mu         sync.RWMutex
	config     *config.Config
	configPath string
	status     Status
	startTime  time.Time

	worlds    *world.Repository
	portals   *portal.Repository
	stats     *stats.Repository
	sessions  *session.Hub
	ledger    *economy.Ledger
	spotlight *spotlight.Spotlight
	store     storage.WorldStorage
	queue     *lifecycle.ArchiveQueue
	migrator  *lifecycle.Migrator
	events    eventstore.Store
	notifier  notify.Publisher
	recorder  metrics.Recorder
	registry  *prometheus.Registry

	httpServer *HTTPServer
	scheduler  *Scheduler
	watcher    *ConfigWatcher
}

// New constructs the full object graph from configuration. Nothing is
// loaded or started yet; call Start for that.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		status:     StatusStarting,
	}

	d.registry = prometheus.NewRegistry()
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	d.store = storage.NewFSStorage(cfg.Storage.WorldsDir, cfg.Storage.ArchiveDir)

	d.worlds = world.NewRepository(cfg.WorldRecordsDir())
	d.worlds.SetRecorder(d.recorder)

	d.portals = portal.NewRepository(cfg.PortalsFile(), d.worlds)
	d.portals.SetRecorder(d.recorder)

	d.stats = stats.NewRepository(cfg.PlayerDataDir(), d.worlds, stats.Defaults{
		Points:     cfg.Stats.StartPoints,
		WorldSlots: cfg.Stats.StartSlots,
		Language:   cfg.Stats.Language,
	})
	d.stats.SetRecorder(d.recorder)

	d.sessions = session.NewHub(cfg.InviteTTL(), cfg.MeetTTL())
	d.ledger = economy.NewLedger(d.stats, cfg.Economy)
	d.spotlight = spotlight.New(cfg.SpotlightFile(), cfg.Spotlight.Capacity, d.worlds)

	events, err := eventstore.NewSQLiteStore(cfg.Events.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	d.events = events

	d.notifier = notify.NoopPublisher{}
	if cfg.Events.NATS.Enabled {
		pub, err := notify.NewNATSPublisher(cfg.Events.NATS)
		if err != nil {
			_ = events.Close()
			return nil, fmt.Errorf("connect event publisher: %w", err)
		}
		d.notifier = pub
	}

	d.queue = lifecycle.NewArchiveQueue(d.worlds, d.store, cfg.ArchiveDelay())
	d.queue.SetRecorder(d.recorder)
	d.queue.SetEventStore(d.events)
	d.queue.SetNotifier(d.notifier)

	d.migrator = lifecycle.NewMigrator(cfg.Economy, d.worlds, d.stats, d.portals, d.store)
	d.migrator.SetRecorder(d.recorder)
	d.migrator.SetEventStore(d.events)

	d.httpServer = NewHTTPServer(cfg, d)

	scheduler, err := NewScheduler(d)
	if err != nil {
		_ = events.Close()
		return nil, err
	}
	d.scheduler = scheduler

	return d, nil
}

// Start loads the repositories and brings up the background machinery.
//
// Load order matters: the world repository must be fully loaded before the
// portal repository (which prunes against it) and before any player stats
// read (which prunes against it too).
func (d *Daemon) Start(ctx context.Context) error {
	slog.Info("Starting daemon")

	if err := d.loadRepositories(); err != nil {
		return err
	}

	if err := d.spotlight.Load(); err != nil {
		slog.Warn("Failed to load spotlight list", logfields.Error(err))
	}

	if err := d.scheduler.Start(ctx); err != nil {
		return err
	}

	watcher, err := NewConfigWatcher(d.configPath, d)
	if err != nil {
		slog.Warn("Config watcher unavailable, live reload disabled", logfields.Error(err))
	} else {
		d.watcher = watcher
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Failed to start config watcher", logfields.Error(err))
		}
	}

	if err := d.httpServer.Start(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.status = StatusRunning
	d.startTime = time.Now()
	d.mu.Unlock()

	slog.Info("Daemon started", logfields.Count(d.worlds.Count()))
	return nil
}

// Stop shuts everything down in reverse start order.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.status = StatusStopping
	d.mu.Unlock()

	slog.Info("Stopping daemon")

	if err := d.httpServer.Stop(ctx); err != nil {
		slog.Error("Error stopping HTTP server", logfields.Error(err))
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(ctx); err != nil {
			slog.Error("Error stopping config watcher", logfields.Error(err))
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		slog.Error("Error stopping scheduler", logfields.Error(err))
	}
	if err := d.notifier.Close(); err != nil {
		slog.Error("Error closing event publisher", logfields.Error(err))
	}
	if err := d.events.Close(); err != nil {
		slog.Error("Error closing event store", logfields.Error(err))
	}

	d.mu.Lock()
	d.status = StatusStopped
	d.mu.Unlock()

	slog.Info("Daemon stopped")
	return nil
}

// loadRepositories performs the sequenced full load.
func (d *Daemon) loadRepositories() error {
	if err := d.worlds.Load(); err != nil {
		return fmt.Errorf("load world repository: %w", err)
	}
	if err := d.portals.Load(); err != nil {
		return fmt.Errorf("load portal repository: %w", err)
	}
	// Player stats are lazy-loaded; dropping the cache forces the next read
	// of every player to re-validate world references against the fresh load.
	d.stats.ClearCache()
	d.recorder.SetWorldCount(d.worlds.Count())
	return nil
}

// Reload re-reads all persistent repositories from disk. Used by the
// config watcher and the admin API.
func (d *Daemon) Reload(ctx context.Context) error {
	slog.Info("Reloading repositories")
	return d.loadRepositories()
}

// ReloadConfig applies a freshly parsed configuration and reloads the
// repositories under it.
func (d *Daemon) ReloadConfig(ctx context.Context, cfg *config.Config) error {
	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return d.Reload(ctx)
}

// GetConfig returns the currently active configuration.
func (d *Daemon) GetConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// GetStatus returns the daemon state.
func (d *Daemon) GetStatus() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// GetStartTime returns when Start completed.
func (d *Daemon) GetStartTime() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.startTime
}

// Worlds exposes the world repository to external collaborators.
func (d *Daemon) Worlds() *world.Repository { return d.worlds }

// Portals exposes the portal repository.
func (d *Daemon) Portals() *portal.Repository { return d.portals }

// Stats exposes the player stats repository.
func (d *Daemon) Stats() *stats.Repository { return d.stats }

// Sessions exposes the session registries.
func (d *Daemon) Sessions() *session.Hub { return d.sessions }

// Ledger exposes the economy operations.
func (d *Daemon) Ledger() *economy.Ledger { return d.ledger }

// Spotlight exposes the curated featured-world list.
func (d *Daemon) Spotlight() *spotlight.Spotlight { return d.spotlight }

// ArchiveExpired runs the archive queue over all expired worlds now.
func (d *Daemon) ArchiveExpired(ctx context.Context) lifecycle.Report {
	return d.queue.RunExpired(ctx, time.Now())
}

// Migrate runs the legacy data import from the given directory. Kind
// selects a single record kind, or "all" (also the empty default) for the
// full sequenced import.
func (d *Daemon) Migrate(legacyDir, kind string) (lifecycle.Report, error) {
	switch kind {
	case "", "all":
		return d.migrator.RunAll(legacyDir)
	case "world":
		return d.migrator.MigrateWorlds(filepath.Join(legacyDir, lifecycle.LegacyWorldFile))
	case "player":
		return d.migrator.MigratePlayers(filepath.Join(legacyDir, lifecycle.LegacyPlayerFile))
	case "portal":
		return d.migrator.MigratePortals(filepath.Join(legacyDir, lifecycle.LegacyPortalFile))
	default:
		return lifecycle.Report{}, fmt.Errorf("unknown migration kind %q", kind)
	}
}

// Events exposes the lifecycle audit log.
func (d *Daemon) Events() eventstore.Store { return d.events }

// rollVisitorWindows shifts every world's per-day visitor counters by one
// day. Runs from the daily maintenance job.
func (d *Daemon) rollVisitorWindows() {
	rolled := 0
	for _, rec := range d.worlds.FindAll() {
		rec.RollDay()
		if err := d.worlds.Save(rec); err != nil {
			slog.Error("Failed to persist visitor window roll",
				logfields.WorldID(rec.UUID),
				logfields.Error(err))
			continue
		}
		rolled++
	}
	slog.Info("Rolled visitor windows", logfields.Count(rolled))
}
