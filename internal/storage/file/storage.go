package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const filePerm = 0o644

// Storage reads and writes files on the local filesystem.
// Every Save is atomic: bytes go to a temp file in the destination directory
// which is then renamed over the target, so an interrupted write never leaves
// a truncated file behind, even when the target is also the source.
type Storage struct{}

// NewStorage creates a new local Storage.
func NewStorage() *Storage {
	return &Storage{}
}

// Load opens the file at path for reading.
func (s *Storage) Load(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Save writes src to path atomically and returns the number of bytes written.
// The destination directory must already exist.
func (s *Storage) Save(_ context.Context, path string, src io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	tmpName := fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString())

	tmp, err := os.OpenFile(filepath.Join(dir, tmpName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Cleared once the rename has happened.
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, src)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("failed to replace %s: %w", path, err)
	}
	cleanup = false

	return n, nil
}

// Size returns the on-disk size of the file at path.
func (s *Storage) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	return info.Size(), nil
}
