package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/worldhost/internal/logfields"
)

// FSStorage implements WorldStorage over a local filesystem: live world
// directories under root, archived ones moved under archiveRoot.
type FSStorage struct {
	root        string
	archiveRoot string
}

// NewFSStorage creates a filesystem-backed storage capability.
func NewFSStorage(root, archiveRoot string) *FSStorage {
	return &FSStorage{root: root, archiveRoot: archiveRoot}
}

// ArchiveAsync relocates the world directory into the archive root in a
// background goroutine. The result channel receives exactly one value.
func (s *FSStorage) ArchiveAsync(ctx context.Context, dir string) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.archive(ctx, dir)
	}()
	return done
}

func (s *FSStorage) archive(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src := filepath.Join(s.root, dir)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("world storage %s: %w", dir, err)
	}
	if err := os.MkdirAll(s.archiveRoot, 0755); err != nil {
		return fmt.Errorf("create archive root: %w", err)
	}

	dst := filepath.Join(s.archiveRoot, dir)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move world storage to archive: %w", err)
	}

	slog.Info("Archived world storage", logfields.WorldName(dir))
	return nil
}

// DirectoryExists reports whether the live storage directory is present.
func (s *FSStorage) DirectoryExists(dir string) bool {
	info, err := os.Stat(filepath.Join(s.root, dir))
	return err == nil && info.IsDir()
}

// Delete permanently removes the live storage directory.
func (s *FSStorage) Delete(dir string) error {
	if err := os.RemoveAll(filepath.Join(s.root, dir)); err != nil {
		return fmt.Errorf("delete world storage: %w", err)
	}
	return nil
}
