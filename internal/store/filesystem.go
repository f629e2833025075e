package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemStore stores artifacts as files under a root directory,
// creating key subdirectories as needed.
type FileSystemStore struct {
	name string
	root string
}

var _ Store = (*FileSystemStore)(nil)

// NewFileSystemStore creates a store rooted at the given path.
func NewFileSystemStore(name, root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FileSystemStore{name: name, root: root}, nil
}

// Put writes the artifact atomically: temp file in the destination
// directory, then rename over the final path.
func (s *FileSystemStore) Put(key string, r io.Reader) error {
	destPath := filepath.Join(s.root, filepath.FromSlash(key))
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to finalize file: %w", err)
	}
	success = true
	return nil
}

// ValidateSetup verifies that the store root is an accessible directory.
func (s *FileSystemStore) ValidateSetup() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("store root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("store root is not a directory: %s", s.root)
	}
	return nil
}
