package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worldhost/internal/config"
	"git.home.luguber.info/inful/worldhost/internal/eventstore"
	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
	"git.home.luguber.info/inful/worldhost/internal/portal"
	"git.home.luguber.info/inful/worldhost/internal/stats"
	"git.home.luguber.info/inful/worldhost/internal/storage"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// Legacy input file names, each a flat YAML map keyed by UUID string.
const (
	LegacyWorldFile  = "world_data.yml"
	LegacyPlayerFile = "player_data.yml"
	LegacyPortalFile = "portal_data.yml"
)

// Migrator imports records from the old flat-file schema into the current
// repositories. The import is one-shot and idempotent per key: re-running
// it overwrites previously imported records with the same result.
type Migrator struct {
	economy  config.EconomyConfig
	worlds   *world.Repository
	stats    *stats.Repository
	portals  *portal.Repository
	store    storage.WorldStorage
	recorder metrics.Recorder
	events   eventstore.Store
	now      func() time.Time
}

// NewMigrator creates a migrator over the given repositories. The storage
// capability is consulted to skip world records whose backing directory no
// longer exists on disk.
func NewMigrator(economy config.EconomyConfig, worlds *world.Repository, statsRepo *stats.Repository, portals *portal.Repository, store storage.WorldStorage) *Migrator {
	return &Migrator{
		economy:  economy,
		worlds:   worlds,
		stats:    statsRepo,
		portals:  portals,
		store:    store,
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
}

// SetRecorder injects a metrics recorder.
func (m *Migrator) SetRecorder(rec metrics.Recorder) {
	if rec != nil {
		m.recorder = rec
	}
}

// SetEventStore injects the lifecycle audit log.
func (m *Migrator) SetEventStore(store eventstore.Store) {
	m.events = store
}

// legacyWorldEntry mirrors one value of the legacy world_data map.
// Members carry their role inline; locations are serialized "(x, y, z)".
type legacyWorldEntry struct {
	Name            string            `yaml:"name"`
	Description     string            `yaml:"description"`
	Icon            string            `yaml:"icon"`
	Template        string            `yaml:"template"`
	Owner           string            `yaml:"owner"`
	Members         map[string]string `yaml:"members"` // player UUID -> role string
	Publish         string            `yaml:"publish"`
	GuestSpawn      string            `yaml:"guest_spawn"`
	MemberSpawn     string            `yaml:"member_spawn"`
	BorderCenter    string            `yaml:"border_center"`
	ExpansionLevel  int               `yaml:"expansion_level"`
	ExpirationDate  string            `yaml:"expiration_date"`
	Created         string            `yaml:"created"`
	Tags            []string          `yaml:"tags"`
	CustomWorldName string            `yaml:"custom_world_name"`
}

type legacyPlayerEntry struct {
	Points        int               `yaml:"points"`
	WorldSlots    int               `yaml:"world_slots"`
	LastOnline    string            `yaml:"last_online"`
	LastKnownName string            `yaml:"last_known_name"`
	Language      string            `yaml:"language"`
	Favorites     map[string]string `yaml:"favorites"`
}

type legacyPortalEntry struct {
	World           string `yaml:"world"`
	Location        string `yaml:"location"`
	Type            string `yaml:"type"`
	DestWorld       string `yaml:"dest_world"`
	DestServerWorld string `yaml:"dest_server_world"`
	Owner           string `yaml:"owner"`
	Created         string `yaml:"created"`
}

// RunAll migrates worlds, then players, then portals, so the later stages
// validate their world references against the freshly imported records.
// Missing legacy files are skipped silently; only successes are counted.
func (m *Migrator) RunAll(legacyDir string) (Report, error) {
	var total Report

	for _, step := range []struct {
		file string
		run  func(string) (Report, error)
	}{
		{LegacyWorldFile, m.MigrateWorlds},
		{LegacyPlayerFile, m.MigratePlayers},
		{LegacyPortalFile, m.MigratePortals},
	} {
		path := filepath.Join(legacyDir, step.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Info("Legacy file not present, skipping", logfields.File(path))
			continue
		}
		report, err := step.run(path)
		total.Total += report.Total
		total.Succeeded += report.Succeeded
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// MigrateWorlds imports the legacy world map. A record whose storage
// directory is missing on disk is skipped: an orphaned record with no
// storage is worse than a missing one.
func (m *Migrator) MigrateWorlds(path string) (Report, error) {
	entries := map[string]legacyWorldEntry{}
	if err := readLegacyFile(path, &entries); err != nil {
		return Report{}, err
	}

	report := Report{Total: len(entries)}
	for id, entry := range entries {
		if err := m.migrateWorld(id, entry); err != nil {
			m.recorder.IncMigrationOutcome(metrics.KindWorld, false)
			slog.Error("Failed to migrate world record",
				logfields.WorldID(id),
				logfields.Error(err))
			continue
		}
		m.recorder.IncMigrationOutcome(metrics.KindWorld, true)
		report.Succeeded++
	}

	slog.Info("World migration finished",
		"succeeded", report.Succeeded,
		logfields.Count(report.Total))
	return report, nil
}

func (m *Migrator) migrateWorld(id string, entry legacyWorldEntry) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record key: %w", err)
	}
	if entry.Owner == "" {
		return fmt.Errorf("missing owner")
	}

	rec := &world.Record{
		UUID:            id,
		Name:            entry.Name,
		Description:     entry.Description,
		Icon:            entry.Icon,
		TemplateID:      entry.Template,
		Owner:           entry.Owner,
		PublishLevel:    mapLegacyPublish(entry.Publish),
		GuestSpawn:      parseLegacyLocation(entry.GuestSpawn),
		MemberSpawn:     parseLegacyLocation(entry.MemberSpawn),
		BorderCenter:    parseLegacyLocation(entry.BorderCenter),
		BorderExpansion: entry.ExpansionLevel,
		// The stored total may be stale; derive it from the expansion
		// level instead.
		PointCost:       m.economy.CumulativeCost(entry.ExpansionLevel),
		ExpirationDate:  normalizeLegacyDateOnly(entry.ExpirationDate),
		CreatedAt:       m.parseLegacyTimestamp(entry.Created),
		Tags:            entry.Tags,
		CustomWorldName: entry.CustomWorldName,
	}

	if !m.store.DirectoryExists(rec.DirectoryName()) {
		return fmt.Errorf("world storage directory %q not found", rec.DirectoryName())
	}

	for playerID, role := range entry.Members {
		switch strings.ToUpper(strings.TrimSpace(role)) {
		case "OWNER", "MODERATOR":
			rec.AddModerator(playerID)
		case "MEMBER":
			if playerID != rec.Owner {
				rec.AddMember(playerID)
			}
		default:
			slog.Warn("Unknown legacy role, imported as member",
				logfields.WorldID(id),
				logfields.PlayerID(playerID),
				"role", role)
			if playerID != rec.Owner {
				rec.AddMember(playerID)
			}
		}
	}

	if err := m.worlds.Save(rec); err != nil {
		return err
	}
	m.appendMigratedEvent(rec)
	return nil
}

func (m *Migrator) appendMigratedEvent(rec *world.Record) {
	if m.events == nil {
		return
	}
	event, err := eventstore.NewWorldMigrated(rec.UUID, eventstore.WorldMigratedMeta{
		Name:  rec.Name,
		Owner: rec.Owner,
	})
	if err == nil {
		err = m.events.Append(context.Background(), event.EventWorldID, event.EventType, event.EventPayload, nil)
	}
	if err != nil {
		slog.Warn("Failed to record migration event",
			logfields.WorldID(rec.UUID),
			logfields.Error(err))
	}
}

// MigratePlayers imports the legacy player map into the stats repository.
func (m *Migrator) MigratePlayers(path string) (Report, error) {
	entries := map[string]legacyPlayerEntry{}
	if err := readLegacyFile(path, &entries); err != nil {
		return Report{}, err
	}

	report := Report{Total: len(entries)}
	for id, entry := range entries {
		if err := m.migratePlayer(id, entry); err != nil {
			m.recorder.IncMigrationOutcome(metrics.KindStats, false)
			slog.Error("Failed to migrate player record",
				logfields.PlayerID(id),
				logfields.Error(err))
			continue
		}
		m.recorder.IncMigrationOutcome(metrics.KindStats, true)
		report.Succeeded++
	}

	slog.Info("Player migration finished",
		"succeeded", report.Succeeded,
		logfields.Count(report.Total))
	return report, nil
}

func (m *Migrator) migratePlayer(id string, entry legacyPlayerEntry) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record key: %w", err)
	}

	// FindByUuid synthesizes defaults for unseen players and prunes world
	// references, so the import only has to overlay the legacy values.
	s, err := m.stats.FindByUUID(id)
	if err != nil {
		return err
	}

	s.Points = entry.Points
	if entry.WorldSlots > 0 {
		s.WorldSlots = entry.WorldSlots
	}
	s.LastOnline = m.parseLegacyTimestamp(entry.LastOnline)
	s.LastKnownName = entry.LastKnownName
	if entry.Language != "" {
		s.Language = stats.NormalizeLanguage(entry.Language, s.Language)
	}
	for worldID, date := range entry.Favorites {
		if !m.worlds.Exists(worldID) {
			continue
		}
		if s.Favorites == nil {
			s.Favorites = map[string]string{}
		}
		s.Favorites[worldID] = date
	}
	for _, rec := range m.worlds.FindByOwner(id) {
		s.RegisterWorld(rec.UUID)
	}

	return m.stats.Save(s)
}

// MigratePortals imports the legacy portal map. Entries whose location
// string does not parse are skipped; the repository's own load-time
// self-healing handles dangling world references afterwards.
func (m *Migrator) MigratePortals(path string) (Report, error) {
	entries := map[string]legacyPortalEntry{}
	if err := readLegacyFile(path, &entries); err != nil {
		return Report{}, err
	}

	report := Report{Total: len(entries)}
	for id, entry := range entries {
		if err := m.migratePortal(id, entry); err != nil {
			m.recorder.IncMigrationOutcome(metrics.KindPortal, false)
			slog.Error("Failed to migrate portal record",
				logfields.PortalID(id),
				logfields.Error(err))
			continue
		}
		m.recorder.IncMigrationOutcome(metrics.KindPortal, true)
		report.Succeeded++
	}

	slog.Info("Portal migration finished",
		"succeeded", report.Succeeded,
		logfields.Count(report.Total))
	return report, nil
}

func (m *Migrator) migratePortal(id string, entry legacyPortalEntry) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid record key: %w", err)
	}
	if entry.World == "" {
		return fmt.Errorf("missing placement world")
	}

	loc := parseLegacyLocation(entry.Location)
	if loc == nil {
		return fmt.Errorf("unreadable location %q", entry.Location)
	}

	rec := &portal.Record{
		UUID:            id,
		World:           entry.World,
		X:               int(loc.X),
		Y:               int(loc.Y),
		Z:               int(loc.Z),
		Kind:            portal.ParseKind(entry.Type),
		DestWorld:       entry.DestWorld,
		DestServerWorld: entry.DestServerWorld,
		Visible:         true,
		Owner:           entry.Owner,
		CreatedAt:       m.parseLegacyTimestamp(entry.Created),
	}
	if rec.DestWorld != "" {
		rec.DestServerWorld = ""
	}

	return m.portals.AddPortal(rec)
}

// mapLegacyPublish converts the legacy publish-level vocabulary. OPEN meant
// friends-only in the old schema; anything unrecognized stays private.
func mapLegacyPublish(s string) world.PublishLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return world.PublishFriend
	case "PUBLIC":
		return world.PublishPublic
	default:
		return world.PublishPrivate
	}
}

// parseLegacyLocation decodes "(x, y, z)". Any parse failure yields a nil
// location rather than a migration failure.
func parseLegacyLocation(s string) *world.Location {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil
	}
	coords := make([]float64, 3)
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil
		}
		coords[i] = f
	}
	return &world.Location{X: coords[0], Y: coords[1], Z: coords[2]}
}

// normalizeLegacyDateOnly keeps a parsable yyyy-MM-dd date and drops
// anything else, so an unparsable expiration never expires a world.
func normalizeLegacyDateOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > len(world.ExpirationLayout) {
		s = s[:len(world.ExpirationLayout)]
	}
	if _, err := time.Parse(world.ExpirationLayout, s); err != nil {
		return ""
	}
	return s
}

// parseLegacyTimestamp accepts full timestamps and bare dates; bare dates
// normalize to midnight. Unparsable values fall back to now.
func (m *Migrator) parseLegacyTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", world.ExpirationLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return m.now()
}

func readLegacyFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read legacy file: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse legacy file %s: %w", path, err)
	}
	return nil
}
