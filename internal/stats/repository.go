package stats

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
)

// WorldIndex is the slice of the world repository the stats layer needs to
// prune dangling world references on load.
type WorldIndex interface {
	Exists(uuid string) bool
}

// Defaults are applied when a player is queried for the first time.
type Defaults struct {
	Points     int
	WorldSlots int
	Language   string
}

// Repository owns PlayerStats, lazy-loaded per player UUID.
//
// Initialization order: the world repository must complete Load before any
// FindByUUID call that expects accurate pruning of world references.
type Repository struct {
	dir      string
	worlds   WorldIndex
	defaults Defaults
	mu       sync.RWMutex
	cache    map[string]*Stats
	recorder metrics.Recorder
}

// NewRepository creates a repository over the given player data directory.
func NewRepository(dir string, worlds WorldIndex, defaults Defaults) *Repository {
	return &Repository{
		dir:      dir,
		worlds:   worlds,
		defaults: defaults,
		cache:    make(map[string]*Stats),
		recorder: metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder (optional).
func (r *Repository) SetRecorder(rec metrics.Recorder) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
}

// FindByUUID returns the player's stats. A cache miss loads the record from
// disk; a missing file synthesizes one from the configured defaults and
// persists it immediately, so every queried player ends up with a durable
// record. World references that no longer resolve are pruned on load and
// the cleaned record is written back before being returned.
func (r *Repository) FindByUUID(id string) (*Stats, error) {
	r.mu.RLock()
	cached, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	s, err := r.loadOrCreate(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Another caller may have loaded it concurrently; first one wins.
	if existing, ok := r.cache[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.cache[id] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Repository) loadOrCreate(id string) (*Stats, error) {
	path := r.filePath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s := &Stats{
			UUID:          id,
			Points:        r.defaults.Points,
			WorldSlots:    r.defaults.WorldSlots,
			Language:      r.defaults.Language,
			Notifications: true,
			MeetStatus:    MeetAvailable,
		}
		if err := r.write(s); err != nil {
			return nil, fmt.Errorf("persist default stats: %w", err)
		}
		r.recorder.IncRecordsLoaded(metrics.KindStats, 1)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}

	var s Stats
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal stats file: %w", err)
	}
	s.UUID = id
	s.MeetStatus = ParseMeetStatus(string(s.MeetStatus))
	s.Language = NormalizeLanguage(s.Language, r.defaults.Language)

	if pruned := r.prune(&s); pruned > 0 {
		slog.Info("Pruned dangling world references from player stats",
			logfields.Kind(string(metrics.KindStats)),
			logfields.PlayerID(id), logfields.Count(pruned))
		r.recorder.IncRecordsPruned(metrics.KindStats, pruned)
		if err := r.write(&s); err != nil {
			slog.Error("Failed to persist pruned stats; cache is ahead of disk",
				logfields.PlayerID(id), logfields.Error(err))
		}
	}

	r.recorder.IncRecordsLoaded(metrics.KindStats, 1)
	return &s, nil
}

// prune removes every world reference that no longer resolves and returns
// the number of removed entries.
func (r *Repository) prune(s *Stats) int {
	pruned := 0

	keep := s.RegisteredWorlds[:0]
	for _, id := range s.RegisteredWorlds {
		if r.worlds.Exists(id) {
			keep = append(keep, id)
		} else {
			pruned++
		}
	}
	if len(keep) == 0 {
		s.RegisteredWorlds = nil
	} else {
		s.RegisteredWorlds = keep
	}

	for id := range s.Favorites {
		if !r.worlds.Exists(id) {
			delete(s.Favorites, id)
			pruned++
		}
	}
	if len(s.Favorites) == 0 {
		s.Favorites = nil
	}

	keep = s.DisplayOrder[:0]
	for _, id := range s.DisplayOrder {
		if r.worlds.Exists(id) {
			keep = append(keep, id)
		} else {
			pruned++
		}
	}
	if len(keep) == 0 {
		s.DisplayOrder = nil
	} else {
		s.DisplayOrder = keep
	}

	return pruned
}

// Save updates the cache and persists the record. On a write failure the
// cache stays authoritative.
func (r *Repository) Save(s *Stats) error {
	r.mu.Lock()
	r.cache[s.UUID] = s
	r.mu.Unlock()

	if err := r.write(s); err != nil {
		slog.Error("Failed to persist player stats; cache is ahead of disk",
			logfields.PlayerID(s.UUID), logfields.Error(err))
		return err
	}
	return nil
}

// ClearCache drops all cached entries so subsequent reads re-validate
// against a freshly reloaded world repository.
func (r *Repository) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]*Stats)
	r.mu.Unlock()
}

func (r *Repository) write(s *Stats) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create player data directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	path := r.filePath(s.UUID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary stats file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replace stats file: %w", err)
	}
	return nil
}

func (r *Repository) filePath(id string) string {
	return filepath.Join(r.dir, id+".yml")
}
