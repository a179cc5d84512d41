package world

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
	"git.home.luguber.info/inful/worldhost/internal/metrics"
)

// FileExt is the extension of persisted record files.
const FileExt = ".yml"

// Repository owns all WorldRecords. It keeps a dual-indexed in-memory cache
// (by UUID and by display name) that is the source of truth after Load;
// persistence is best effort, one YAML file per record.
type Repository struct {
	dir      string
	mu       sync.RWMutex
	byUUID   map[string]*Record
	byName   map[string]*Record
	recorder metrics.Recorder
}

// NewRepository creates a repository over the given record directory.
func NewRepository(dir string) *Repository {
	return &Repository{
		dir:      dir,
		byUUID:   make(map[string]*Record),
		byName:   make(map[string]*Record),
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

// Load clears both indexes and rebuilds them from the record directory.
// Malformed files are skipped with a warning; they never abort the load.
func (r *Repository) Load() error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create world record directory: %w", err)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read world record directory: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byUUID = make(map[string]*Record)
	r.byName = make(map[string]*Record)

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), FileExt)
		if _, err := uuid.Parse(id); err != nil {
			slog.Warn("Skipping world record with non-UUID filename", logfields.File(entry.Name()))
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("Failed to read world record", logfields.File(path), logfields.Error(err))
			continue
		}

		var rec Record
		if err := yaml.Unmarshal(data, &rec); err != nil {
			slog.Warn("Skipping malformed world record", logfields.File(path), logfields.Error(err))
			continue
		}

		// The filename is authoritative for identity.
		rec.UUID = id
		rec.PublishLevel = ParsePublishLevel(string(rec.PublishLevel))

		r.byUUID[id] = &rec
		if rec.Name != "" {
			r.byName[rec.Name] = &rec
		}
		loaded++
	}

	r.recorder.IncRecordsLoaded(metrics.KindWorld, loaded)
	r.recorder.SetWorldCount(len(r.byUUID))
	slog.Info("Loaded world records",
		logfields.Kind(string(metrics.KindWorld)),
		logfields.Count(loaded))
	return nil
}

// Save updates both indexes and writes the record to disk. A stale
// name-index entry from a rename is removed before the new one is inserted.
// On a write failure the cache stays authoritative; the error is returned
// so callers can surface it, but the in-memory state is not rolled back.
func (r *Repository) Save(rec *Record) error {
	r.mu.Lock()
	if prev, ok := r.byUUID[rec.UUID]; ok && prev.Name != rec.Name {
		delete(r.byName, prev.Name)
	}
	r.byUUID[rec.UUID] = rec
	if rec.Name != "" {
		r.byName[rec.Name] = rec
	}
	r.recorder.SetWorldCount(len(r.byUUID))
	r.mu.Unlock()

	if err := r.writeRecord(rec); err != nil {
		slog.Error("Failed to persist world record; cache is ahead of disk",
			logfields.WorldID(rec.UUID), logfields.Error(err))
		return err
	}
	return nil
}

func (r *Repository) writeRecord(rec *Record) error {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal world record: %w", err)
	}

	path := filepath.Join(r.dir, rec.UUID+FileExt)
	tempPath := path + ".tmp"

	// Atomic write using temporary file.
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary record file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}

// FindByUUID returns the cached record for a world id.
func (r *Repository) FindByUUID(id string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byUUID[id]
	return rec, ok
}

// FindByName returns the cached record for a display name.
func (r *Repository) FindByName(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byName[name]
	return rec, ok
}

// FindByDirectory resolves a storage directory name to its record:
// managed names ("world.<uuid>") resolve through the UUID index, custom
// directory names are matched by scan.
func (r *Repository) FindByDirectory(name string) (*Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.HasPrefix(name, DirPrefix) {
		rec, ok := r.byUUID[strings.TrimPrefix(name, DirPrefix)]
		return rec, ok
	}
	for _, rec := range r.byUUID {
		if rec.CustomWorldName == name {
			return rec, true
		}
	}
	return nil, false
}

// Exists reports whether a world id is present in the cache.
func (r *Repository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUUID[id]
	return ok
}

// FindAll returns every cached record.
func (r *Repository) FindAll() []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Record, 0, len(r.byUUID))
	for _, rec := range r.byUUID {
		all = append(all, rec)
	}
	return all
}

// FindByOwner returns every record owned by the given player.
func (r *Repository) FindByOwner(playerID string) []*Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*Record
	for _, rec := range r.byUUID {
		if rec.Owner == playerID {
			owned = append(owned, rec)
		}
	}
	return owned
}

// Count returns the number of cached records.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUUID)
}

// Delete removes the record from both indexes and deletes its file.
// Deleting an absent record is a no-op.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	if rec, ok := r.byUUID[id]; ok {
		delete(r.byName, rec.Name)
		delete(r.byUUID, id)
	}
	r.recorder.SetWorldCount(len(r.byUUID))
	r.mu.Unlock()

	path := filepath.Join(r.dir, id+FileExt)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete record file: %w", err)
	}
	return nil
}
