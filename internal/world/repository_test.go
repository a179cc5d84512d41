package world

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(name string) *Record {
	return &Record{
		UUID:            uuid.New().String(),
		Name:            name,
		Description:     "a test world",
		Icon:            "GRASS_BLOCK",
		TemplateID:      "flat",
		ExpirationDate:  "2030-01-02",
		Owner:           uuid.New().String(),
		Members:         []string{uuid.New().String()},
		Moderators:      []string{uuid.New().String()},
		PublishLevel:    PublishFriend,
		GuestSpawn:      &Location{X: 1, Y: 64, Z: -3},
		BorderCenter:    &Location{X: 0, Y: 64, Z: 0},
		BorderExpansion: 2,
		PointCost:       250,
		CreatedAt:       time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		RecentVisitors:  []int{3, 1, 0, 0, 2, 0, 0},
		FavoriteCount:   4,
		Tags:            []string{"adventure", "parkour"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir)
	require.NoError(t, repo.Load())

	rec := testRecord("alpha")
	require.NoError(t, repo.Save(rec))

	fresh := NewRepository(dir)
	require.NoError(t, fresh.Load())

	got, ok := fresh.FindByUUID(rec.UUID)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestRenameUpdatesNameIndex(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load())

	rec := testRecord("before")
	require.NoError(t, repo.Save(rec))

	rec.Name = "after"
	require.NoError(t, repo.Save(rec))

	_, ok := repo.FindByName("before")
	assert.False(t, ok, "stale name index entry must be removed on rename")

	got, ok := repo.FindByName("after")
	require.True(t, ok)
	assert.Equal(t, rec.UUID, got.UUID)

	byID, ok := repo.FindByUUID(rec.UUID)
	require.True(t, ok)
	assert.Equal(t, "after", byID.Name)
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepository(dir)
	require.NoError(t, repo.Load())

	rec := testRecord("good")
	require.NoError(t, repo.Save(rec))

	badPath := filepath.Join(dir, uuid.New().String()+FileExt)
	require.NoError(t, os.WriteFile(badPath, []byte("\t: not yaml {{{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-uuid.yml"), []byte("name: x"), 0644))

	fresh := NewRepository(dir)
	require.NoError(t, fresh.Load())
	assert.Equal(t, 1, fresh.Count())
	_, ok := fresh.FindByUUID(rec.UUID)
	assert.True(t, ok)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load())

	rec := testRecord("doomed")
	require.NoError(t, repo.Save(rec))

	require.NoError(t, repo.Delete(rec.UUID))
	_, ok := repo.FindByUUID(rec.UUID)
	assert.False(t, ok)
	_, ok = repo.FindByName("doomed")
	assert.False(t, ok)

	// Second delete of the same id must not fail.
	require.NoError(t, repo.Delete(rec.UUID))
}

func TestFindByDirectory(t *testing.T) {
	repo := NewRepository(t.TempDir())
	require.NoError(t, repo.Load())

	managed := testRecord("managed")
	require.NoError(t, repo.Save(managed))

	custom := testRecord("custom")
	custom.CustomWorldName = "lobby"
	require.NoError(t, repo.Save(custom))

	got, ok := repo.FindByDirectory(DirPrefix + managed.UUID)
	require.True(t, ok)
	assert.Equal(t, managed.UUID, got.UUID)

	got, ok = repo.FindByDirectory("lobby")
	require.True(t, ok)
	assert.Equal(t, custom.UUID, got.UUID)

	_, ok = repo.FindByDirectory(DirPrefix + uuid.New().String())
	assert.False(t, ok)
}

func TestDirectoryName(t *testing.T) {
	rec := testRecord("w")
	assert.Equal(t, DirPrefix+rec.UUID, rec.DirectoryName())

	rec.CustomWorldName = "hub"
	assert.Equal(t, "hub", rec.DirectoryName())
}

func TestMembershipInvariants(t *testing.T) {
	rec := &Record{UUID: uuid.New().String(), Owner: "owner"}

	rec.AddMember("owner")
	assert.Empty(t, rec.Members, "owner must never appear in members")

	rec.AddMember("p1")
	rec.AddMember("p1")
	assert.Equal(t, []string{"p1"}, rec.Members)

	rec.AddModerator("p1")
	assert.Empty(t, rec.Members, "moderator supersedes member")
	assert.Equal(t, []string{"p1"}, rec.Moderators)

	rec.AddMember("p1")
	assert.Empty(t, rec.Members, "an existing moderator is not re-added as member")

	rec.DemoteModerator("p1")
	assert.Empty(t, rec.Moderators)
	assert.Equal(t, []string{"p1"}, rec.Members)

	rec.RemoveMember("p1")
	assert.Empty(t, rec.Members)
}

func TestParsePublishLevel(t *testing.T) {
	assert.Equal(t, PublishPublic, ParsePublishLevel("public"))
	assert.Equal(t, PublishFriend, ParsePublishLevel(" FRIEND "))
	assert.Equal(t, PublishLocked, ParsePublishLevel("Locked"))
	assert.Equal(t, PublishPrivate, ParsePublishLevel("whatever"))
	assert.Equal(t, PublishPrivate, ParsePublishLevel(""))
}

func TestVisitorWindow(t *testing.T) {
	rec := &Record{}
	rec.RecordVisit()
	rec.RecordVisit()
	assert.Equal(t, 2, rec.RecentVisitors[0])

	rec.RollDay()
	assert.Equal(t, 0, rec.RecentVisitors[0])
	assert.Equal(t, 2, rec.RecentVisitors[1])
	assert.Equal(t, 2, rec.RecentVisitorTotal())

	for i := 0; i < RecentVisitorDays; i++ {
		rec.RollDay()
	}
	assert.Equal(t, 0, rec.RecentVisitorTotal(), "old buckets fall out of the window")
}

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	rec := &Record{ExpirationDate: "2026-08-27"}
	assert.True(t, rec.IsExpired(now))

	rec.ExpirationDate = "2026-08-28"
	assert.False(t, rec.IsExpired(now), "a world lives until the end of its expiration day")

	rec.ExpirationDate = ""
	assert.False(t, rec.IsExpired(now))

	rec.ExpirationDate = "not-a-date"
	assert.False(t, rec.IsExpired(now))
}
