// Package storage abstracts the physical world storage on disk. The data
// layer treats it as an opaque capability: given a directory name, archive,
// delete, or probe its backing storage.
package storage

import "context"

// WorldStorage is the capability consumed by the lifecycle orchestrator and
// migration. ArchiveAsync starts relocating a world's storage and reports
// completion on the returned channel (nil means success); exactly one value
// is sent.
type WorldStorage interface {
	ArchiveAsync(ctx context.Context, dir string) <-chan error
	DirectoryExists(dir string) bool
	Delete(dir string) error
}

// NoopStorage is the null-object implementation used when no physical
// storage is attached (tests, dry runs). Every operation succeeds.
type NoopStorage struct{}

func (NoopStorage) ArchiveAsync(ctx context.Context, dir string) <-chan error {
	done := make(chan error, 1)
	done <- nil
	return done
}

func (NoopStorage) DirectoryExists(dir string) bool { return true }

func (NoopStorage) Delete(dir string) error { return nil }
