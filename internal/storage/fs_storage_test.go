package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStorageArchiveMovesDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "live")
	archive := filepath.Join(base, "archive")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "world.abc"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "world.abc", "level.dat"), []byte("x"), 0644))

	s := NewFSStorage(root, archive)
	assert.True(t, s.DirectoryExists("world.abc"))

	err := <-s.ArchiveAsync(context.Background(), "world.abc")
	require.NoError(t, err)

	assert.False(t, s.DirectoryExists("world.abc"))
	_, statErr := os.Stat(filepath.Join(archive, "world.abc", "level.dat"))
	assert.NoError(t, statErr)
}

func TestFSStorageArchiveMissingDirectory(t *testing.T) {
	base := t.TempDir()
	s := NewFSStorage(filepath.Join(base, "live"), filepath.Join(base, "archive"))

	err := <-s.ArchiveAsync(context.Background(), "world.gone")
	assert.Error(t, err)
}

func TestFSStorageDelete(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "live")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "world.doomed"), 0755))

	s := NewFSStorage(root, filepath.Join(base, "archive"))
	require.NoError(t, s.Delete("world.doomed"))
	assert.False(t, s.DirectoryExists("world.doomed"))

	// Deleting an absent directory is a no-op.
	assert.NoError(t, s.Delete("world.doomed"))
}
