package portal

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
	"git.home.luguber.info/inful/worldhost/internal/world"
)

// WorldIndex is the slice of the world repository the portal layer needs
// to keep its cross-entity references healthy.
type WorldIndex interface {
	Exists(uuid string) bool
	FindByDirectory(name string) (*world.Record, bool)
}

// Repository owns all PortalRecords. Unlike the world repository the whole
// collection lives in a single aggregate file; every mutation re-serializes
// the full collection, trading write efficiency for crash consistency.
type Repository struct {
	path     string
	worlds   WorldIndex
	mu       sync.RWMutex
	portals  map[string]*Record
	recorder metrics.Recorder
}

// NewRepository creates a repository over the given aggregate file.
func NewRepository(path string, worlds WorldIndex) *Repository {
	return &Repository{
		path:     path,
		worlds:   worlds,
		portals:  make(map[string]*Record),
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

type aggregateFile struct {
	Portals map[string]yaml.Node `yaml:"portals"`
}

type persistedFile struct {
	Portals map[string]*Record `yaml:"portals"`
}

// Load reconstructs the store from the aggregate file and self-heals its
// cross-entity references: entries placed in a managed world that no longer
// exists are dropped, entries whose destination world is gone are demoted to
// unbound. The cleaned result is persisted immediately so the healing
// survives a crash before any later save.
func (r *Repository) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.portals = make(map[string]*Record)
			r.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read portal file: %w", err)
	}

	var file aggregateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("unmarshal portal file: %w", err)
	}

	loaded := make(map[string]*Record, len(file.Portals))
	pruned := 0
	demoted := 0
	for id, node := range file.Portals {
		var raw rawRecord
		if err := node.Decode(&raw); err != nil {
			slog.Warn("Skipping unreadable portal entry", logfields.PortalID(id), logfields.Error(err))
			continue
		}
		rec, err := raw.resolve(id)
		if err != nil {
			slog.Warn("Skipping unreadable portal entry", logfields.PortalID(id), logfields.Error(err))
			continue
		}

		if world.IsManagedDirectory(rec.World) {
			if _, ok := r.worlds.FindByDirectory(rec.World); !ok {
				slog.Info("Dropping portal placed in deleted world",
					logfields.PortalID(id), logfields.WorldName(rec.World))
				pruned++
				continue
			}
		}
		if rec.DestWorld != "" && !r.worlds.Exists(rec.DestWorld) {
			slog.Info("Clearing portal destination to deleted world",
				logfields.PortalID(id), logfields.WorldID(rec.DestWorld))
			rec.ClearDestination()
			demoted++
		}
		loaded[id] = rec
	}

	r.mu.Lock()
	r.portals = loaded
	r.mu.Unlock()

	r.recorder.IncRecordsLoaded(metrics.KindPortal, len(loaded))
	r.recorder.IncRecordsPruned(metrics.KindPortal, pruned+demoted)
	slog.Info("Loaded portal records",
		logfields.Kind(string(metrics.KindPortal)),
		logfields.Count(len(loaded)),
		slog.Int("pruned", pruned),
		slog.Int("demoted", demoted))

	// Persist the cleaned-up collection so the healing is on disk.
	return r.SaveAll()
}

// SaveAll re-serializes the entire collection to the aggregate file.
func (r *Repository) SaveAll() error {
	r.mu.RLock()
	file := persistedFile{Portals: make(map[string]*Record, len(r.portals))}
	for id, rec := range r.portals {
		file.Portals[id] = rec
	}
	r.mu.RUnlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal portal file: %w", err)
	}

	tempPath := r.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary portal file: %w", err)
	}
	if err := os.Rename(tempPath, r.path); err != nil {
		return fmt.Errorf("replace portal file: %w", err)
	}
	return nil
}

// AddPortal inserts a record and immediately persists the full aggregate.
func (r *Repository) AddPortal(rec *Record) error {
	if rec.UUID == "" {
		return fmt.Errorf("portal UUID is required")
	}
	r.mu.Lock()
	r.portals[rec.UUID] = rec
	r.mu.Unlock()
	return r.SaveAll()
}

// RemovePortal deletes a record and immediately persists the full aggregate.
func (r *Repository) RemovePortal(id string) error {
	r.mu.Lock()
	delete(r.portals, id)
	r.mu.Unlock()
	return r.SaveAll()
}

// FindByUUID returns the cached record for a portal id.
func (r *Repository) FindByUUID(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.portals[id]
	return rec, ok
}

// FindByLocation returns the portal placed exactly at the given block.
func (r *Repository) FindByLocation(worldName string, x, y, z int) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findExactLocked(worldName, x, y, z)
}

// FindByContainingLocation first tries an exact match, then scans GATE
// portals whose bounding box contains the point (bounds inclusive).
func (r *Repository) FindByContainingLocation(worldName string, x, y, z int) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.findExactLocked(worldName, x, y, z); ok {
		return rec, true
	}
	for _, rec := range r.portals {
		if rec.Kind != KindGate || rec.Box == nil || rec.World != worldName {
			continue
		}
		if rec.Box.Contains(x, y, z) {
			return rec, true
		}
	}
	return nil, false
}

func (r *Repository) findExactLocked(worldName string, x, y, z int) (*Record, bool) {
	for _, rec := range r.portals {
		if rec.World == worldName && rec.X == x && rec.Y == y && rec.Z == z {
			return rec, true
		}
	}
	return nil, false
}

// FindByWorld returns every portal placed in the given world directory.
func (r *Repository) FindByWorld(worldName string) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, rec := range r.portals {
		if rec.World == worldName {
			out = append(out, rec)
		}
	}
	return out
}

// FindAll returns every cached record.
func (r *Repository) FindAll() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Record, 0, len(r.portals))
	for _, rec := range r.portals {
		all = append(all, rec)
	}
	return all
}

// Count returns the number of cached records.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.portals)
}
