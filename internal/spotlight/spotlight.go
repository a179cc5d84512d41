// Package spotlight maintains the capacity-bounded curated list of featured
// world UUIDs.
package spotlight

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
)

// ErrFull is returned when the list is at capacity.
var ErrFull = fmt.Errorf("spotlight is at capacity")

// WorldIndex is the slice of the world repository spotlight needs to
// self-heal entries pointing at deleted worlds.
type WorldIndex interface {
	Exists(uuid string) bool
}

// Spotlight is the persisted, ordered, capacity-bounded featured list.
type Spotlight struct {
	path     string
	capacity int
	worlds   WorldIndex
	mu       sync.Mutex
	entries  []string
}

type spotlightFile struct {
	Worlds []string `yaml:"worlds"`
}

// New creates a spotlight persisted at path with the given capacity.
func New(path string, capacity int, worlds WorldIndex) *Spotlight {
	return &Spotlight{path: path, capacity: capacity, worlds: worlds}
}

// Load reads the list from disk, dropping entries whose world no longer
// exists. A prune is persisted immediately.
func (s *Spotlight) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.entries = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read spotlight file: %w", err)
	}

	var file spotlightFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("unmarshal spotlight file: %w", err)
	}

	var kept []string
	pruned := 0
	for _, id := range file.Worlds {
		if s.worlds.Exists(id) {
			kept = append(kept, id)
		} else {
			pruned++
		}
	}
	if len(kept) > s.capacity {
		kept = kept[:s.capacity]
	}

	s.mu.Lock()
	s.entries = kept
	s.mu.Unlock()

	if pruned > 0 {
		slog.Info("Pruned deleted worlds from spotlight", logfields.Count(pruned))
		return s.save()
	}
	return nil
}

// Add appends a world to the list. Adding a present world is a no-op;
// adding to a full list returns ErrFull.
func (s *Spotlight) Add(worldID string) error {
	s.mu.Lock()
	for _, id := range s.entries {
		if id == worldID {
			s.mu.Unlock()
			return nil
		}
	}
	if len(s.entries) >= s.capacity {
		s.mu.Unlock()
		return ErrFull
	}
	s.entries = append(s.entries, worldID)
	s.mu.Unlock()
	return s.save()
}

// Remove deletes a world from the list; absent ids are a no-op.
func (s *Spotlight) Remove(worldID string) error {
	s.mu.Lock()
	kept := s.entries[:0]
	for _, id := range s.entries {
		if id != worldID {
			kept = append(kept, id)
		}
	}
	s.entries = kept
	s.mu.Unlock()
	return s.save()
}

// List returns the featured world ids in curation order, skipping any that
// have been deleted since load.
func (s *Spotlight) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for _, id := range s.entries {
		if s.worlds.Exists(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Spotlight) save() error {
	s.mu.Lock()
	file := spotlightFile{Worlds: append([]string(nil), s.entries...)}
	s.mu.Unlock()

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("marshal spotlight file: %w", err)
	}
	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write temporary spotlight file: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("replace spotlight file: %w", err)
	}
	return nil
}
