package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

var validFileKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore keeps one human-readable JSON file per key in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) (string, error) {
	if !validFileKey.MatchString(key) {
		return "", domain.NewValidationErrorWithValue("key", "must match [A-Za-z0-9_.-]+", key)
	}

	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the file for key.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p) //nolint:gosec // path is built from a validated key
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	return data, nil
}

// Set writes value to a temporary file and renames it over the key's file.
func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}

	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename to %s: %w", p, err)
	}

	return nil
}

// Delete removes the key's file.
func (f *FileStore) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (f *FileStore) Name() string { return "storage:file" }

// Check verifies the data directory is still a directory.
func (f *FileStore) Check(context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", f.dir)
	}

	return nil
}

// Close implements ports.StorageBackend.
func (f *FileStore) Close() error { return nil }
