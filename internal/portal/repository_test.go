package portal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/worldhost/internal/world"
)

// fakeWorlds is a WorldIndex backed by plain maps.
type fakeWorlds struct {
	uuids map[string]bool
	dirs  map[string]*world.Record
}

func newFakeWorlds() *fakeWorlds {
	return &fakeWorlds{uuids: make(map[string]bool), dirs: make(map[string]*world.Record)}
}

func (f *fakeWorlds) add(rec *world.Record) {
	f.uuids[rec.UUID] = true
	f.dirs[rec.DirectoryName()] = rec
}

func (f *fakeWorlds) Exists(id string) bool { return f.uuids[id] }

func (f *fakeWorlds) FindByDirectory(name string) (*world.Record, bool) {
	rec, ok := f.dirs[name]
	return rec, ok
}

func writePortalFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "portals.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadLegacyLocationEncodings(t *testing.T) {
	worlds := newFakeWorlds()
	hub := &world.Record{UUID: uuid.New().String(), Name: "hub"}
	worlds.add(hub)

	content := `portals:
  explicit:
    world: ` + hub.DirectoryName() + `
    x: 1
    y: 64
    z: -2
  nested:
    location:
      world: ` + hub.DirectoryName() + `
      x: 10.7
      y: 70.0
      z: 3.2
  serialized:
    location: "` + hub.DirectoryName() + `, 5.0, 66.0, 7.0"
  unreadable:
    world: ` + hub.DirectoryName() + `
    kind: POINT
`
	path := writePortalFile(t, t.TempDir(), content)

	repo := NewRepository(path, worlds)
	require.NoError(t, repo.Load())
	assert.Equal(t, 3, repo.Count(), "entry with no readable location is skipped")

	explicit, ok := repo.FindByUUID("explicit")
	require.True(t, ok)
	assert.Equal(t, 1, explicit.X)
	assert.Equal(t, -2, explicit.Z)

	nested, ok := repo.FindByUUID("nested")
	require.True(t, ok)
	assert.Equal(t, 10, nested.X)
	assert.Equal(t, 70, nested.Y)

	serialized, ok := repo.FindByUUID("serialized")
	require.True(t, ok)
	assert.Equal(t, 5, serialized.X)
	assert.Equal(t, hub.DirectoryName(), serialized.World)
}

func TestLoadSelfHealsReferences(t *testing.T) {
	worlds := newFakeWorlds()
	alive := &world.Record{UUID: uuid.New().String(), Name: "alive"}
	worlds.add(alive)
	goneUUID := uuid.New().String()

	content := `portals:
  in-dead-world:
    world: world.` + goneUUID + `
    x: 0
    y: 0
    z: 0
  dangling-dest:
    world: ` + alive.DirectoryName() + `
    x: 1
    y: 1
    z: 1
    dest_world: ` + goneUUID + `
  external-placement:
    world: spawn_lobby
    x: 2
    y: 2
    z: 2
`
	path := writePortalFile(t, t.TempDir(), content)

	repo := NewRepository(path, worlds)
	require.NoError(t, repo.Load())

	_, ok := repo.FindByUUID("in-dead-world")
	assert.False(t, ok, "portal in a deleted managed world is dropped")

	demoted, ok := repo.FindByUUID("dangling-dest")
	require.True(t, ok)
	assert.False(t, demoted.IsBound(), "missing destination is cleared, entry kept")

	_, ok = repo.FindByUUID("external-placement")
	assert.True(t, ok, "non-managed placement worlds are never pruned")

	// The cleanup must be reflected on disk immediately after load.
	fresh := NewRepository(path, worlds)
	require.NoError(t, fresh.Load())
	assert.Equal(t, 2, fresh.Count())
	kept, ok := fresh.FindByUUID("dangling-dest")
	require.True(t, ok)
	assert.Empty(t, kept.DestWorld)
}

func TestGateContainment(t *testing.T) {
	worlds := newFakeWorlds()
	repo := NewRepository(filepath.Join(t.TempDir(), "portals.yml"), worlds)
	require.NoError(t, repo.Load())

	gate := &Record{
		UUID:  uuid.New().String(),
		World: "world.w",
		X:     0, Y: 0, Z: 0,
		Kind: KindGate,
		Box:  &Box{MinX: 0, MinY: 0, MinZ: 0, MaxX: 2, MaxY: 2, MaxZ: 2},
	}
	require.NoError(t, repo.AddPortal(gate))

	for _, p := range [][3]int{{0, 0, 0}, {2, 2, 2}, {1, 1, 1}} {
		got, ok := repo.FindByContainingLocation("world.w", p[0], p[1], p[2])
		require.True(t, ok, "point %v should be contained", p)
		assert.Equal(t, gate.UUID, got.UUID)
	}

	_, ok := repo.FindByContainingLocation("world.w", 3, 0, 0)
	assert.False(t, ok)

	_, ok = repo.FindByContainingLocation("other", 1, 1, 1)
	assert.False(t, ok, "containment never matches across worlds")
}

func TestExactLookupPrecedesContainment(t *testing.T) {
	repo := NewRepository(filepath.Join(t.TempDir(), "portals.yml"), newFakeWorlds())
	require.NoError(t, repo.Load())

	gate := &Record{UUID: "gate", World: "w", X: 5, Y: 5, Z: 5, Kind: KindGate,
		Box: &Box{MaxX: 10, MaxY: 10, MaxZ: 10}}
	point := &Record{UUID: "point", World: "w", X: 1, Y: 1, Z: 1, Kind: KindPoint}
	require.NoError(t, repo.AddPortal(gate))
	require.NoError(t, repo.AddPortal(point))

	got, ok := repo.FindByContainingLocation("w", 1, 1, 1)
	require.True(t, ok)
	assert.Equal(t, "point", got.UUID)
}

func TestMutationsPersistAggregate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portals.yml")
	worlds := newFakeWorlds()

	repo := NewRepository(path, worlds)
	require.NoError(t, repo.Load())

	rec := &Record{UUID: uuid.New().String(), World: "spawn", X: 1, Y: 2, Z: 3, Kind: KindPoint, Visible: true}
	require.NoError(t, repo.AddPortal(rec))

	fresh := NewRepository(path, worlds)
	require.NoError(t, fresh.Load())
	got, ok := fresh.FindByUUID(rec.UUID)
	require.True(t, ok)
	assert.Equal(t, rec.World, got.World)
	assert.Equal(t, rec.X, got.X)

	require.NoError(t, repo.RemovePortal(rec.UUID))
	fresh = NewRepository(path, worlds)
	require.NoError(t, fresh.Load())
	assert.Equal(t, 0, fresh.Count())
}

func TestDestinationExclusivity(t *testing.T) {
	raw := rawRecord{
		World:           "w",
		X:               intPtr(0),
		Y:               intPtr(0),
		Z:               intPtr(0),
		DestWorld:       "some-uuid",
		DestServerWorld: "external",
	}
	rec, err := raw.resolve("p")
	require.NoError(t, err)
	assert.Equal(t, "some-uuid", rec.DestWorld)
	assert.Empty(t, rec.DestServerWorld, "managed destination wins over external name")
}

func intPtr(v int) *int { return &v }
