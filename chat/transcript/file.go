package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes every batch into its own file inside a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if it doesn't exist yet.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

func (f *FileStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" || filepath.Base(key) != key {
		return fmt.Errorf("invalid transcript key %q", key)
	}

	return os.WriteFile(filepath.Join(f.dir, key), data, 0o644)
}
