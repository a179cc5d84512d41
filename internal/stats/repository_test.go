package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeWorlds map[string]bool

func (f fakeWorlds) Exists(id string) bool { return f[id] }

var testDefaults = Defaults{Points: 100, WorldSlots: 1, Language: "en"}

func TestFindByUUIDSynthesizesDefaults(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir, fakeWorlds{}, testDefaults)

	id := uuid.New().String()
	s, err := repo.FindByUUID(id)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Points)
	assert.Equal(t, 1, s.WorldSlots)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, MeetAvailable, s.MeetStatus)
	assert.True(t, s.Notifications)

	// The synthesized record must be durable immediately.
	_, statErr := os.Stat(filepath.Join(dir, id+".yml"))
	assert.NoError(t, statErr)
}

func TestFindByUUIDCacheHit(t *testing.T) {
	repo := NewRepository(t.TempDir(), fakeWorlds{}, testDefaults)

	id := uuid.New().String()
	first, err := repo.FindByUUID(id)
	require.NoError(t, err)

	first.Points = 42
	second, err := repo.FindByUUID(id)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestPruningInvariant(t *testing.T) {
	dir := t.TempDir()
	alive := uuid.New().String()
	dead := uuid.New().String()
	worlds := fakeWorlds{alive: true}

	id := uuid.New().String()
	onDisk := &Stats{
		UUID:             id,
		Points:           500,
		WorldSlots:       3,
		RegisteredWorlds: []string{alive, dead},
		Favorites:        map[string]string{alive: "2026-01-01", dead: "2026-02-02"},
		DisplayOrder:     []string{dead, alive},
	}
	data, err := yaml.Marshal(onDisk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".yml"), data, 0644))

	repo := NewRepository(dir, worlds, testDefaults)
	s, err := repo.FindByUUID(id)
	require.NoError(t, err)

	assert.Equal(t, []string{alive}, s.RegisteredWorlds)
	assert.Equal(t, []string{alive}, s.DisplayOrder)
	assert.NotContains(t, s.Favorites, dead)
	assert.Contains(t, s.Favorites, alive)

	// The cleaned record must have been rewritten to disk.
	raw, err := os.ReadFile(filepath.Join(dir, id+".yml"))
	require.NoError(t, err)
	var reloaded Stats
	require.NoError(t, yaml.Unmarshal(raw, &reloaded))
	assert.Equal(t, []string{alive}, reloaded.RegisteredWorlds)
	assert.NotContains(t, reloaded.Favorites, dead)
	assert.Equal(t, []string{alive}, reloaded.DisplayOrder)
}

func TestClearCacheRevalidates(t *testing.T) {
	dir := t.TempDir()
	worldID := uuid.New().String()
	worlds := fakeWorlds{worldID: true}
	repo := NewRepository(dir, worlds, testDefaults)

	id := uuid.New().String()
	s, err := repo.FindByUUID(id)
	require.NoError(t, err)
	s.RegisterWorld(worldID)
	require.NoError(t, repo.Save(s))

	// The world disappears; a cached read still sees the stale reference.
	delete(worlds, worldID)
	cached, err := repo.FindByUUID(id)
	require.NoError(t, err)
	assert.Contains(t, cached.RegisteredWorlds, worldID)

	// After a cache clear, the reload prunes against the current index.
	repo.ClearCache()
	fresh, err := repo.FindByUUID(id)
	require.NoError(t, err)
	assert.NotContains(t, fresh.RegisteredWorlds, worldID)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	worldID := uuid.New().String()
	repo := NewRepository(dir, fakeWorlds{worldID: true}, testDefaults)

	id := uuid.New().String()
	s, err := repo.FindByUUID(id)
	require.NoError(t, err)
	s.Points = 777
	s.LastKnownName = "Steve"
	s.MeetStatus = MeetBusy
	s.BetaFeatures = true
	s.RegisterWorld(worldID)
	require.NoError(t, repo.Save(s))

	fresh := NewRepository(dir, fakeWorlds{worldID: true}, testDefaults)
	got, err := fresh.FindByUUID(id)
	require.NoError(t, err)
	assert.Equal(t, 777, got.Points)
	assert.Equal(t, "Steve", got.LastKnownName)
	assert.Equal(t, MeetBusy, got.MeetStatus)
	assert.True(t, got.BetaFeatures)
	assert.Equal(t, []string{worldID}, got.RegisteredWorlds)
}

func TestNormalizeLanguage(t *testing.T) {
	assert.Equal(t, "en", NormalizeLanguage("en", "de"))
	assert.Equal(t, "pt-BR", NormalizeLanguage("pt-BR", "en"))
	assert.Equal(t, "en", NormalizeLanguage("???", "en"))
	assert.Equal(t, "en", NormalizeLanguage("", "en"))
}

func TestRegisterUnregisterWorld(t *testing.T) {
	s := &Stats{Favorites: map[string]string{"w1": "2026-01-01"}}
	s.RegisterWorld("w1")
	s.RegisterWorld("w1")
	assert.Equal(t, []string{"w1"}, s.RegisteredWorlds)
	assert.Equal(t, []string{"w1"}, s.DisplayOrder)

	s.UnregisterWorld("w1")
	assert.Empty(t, s.RegisteredWorlds)
	assert.Empty(t, s.DisplayOrder)
	assert.NotContains(t, s.Favorites, "w1")
}
