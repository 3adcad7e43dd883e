// Package storage keeps uploaded assets and generated documents on a
// filesystem abstraction so tests can run against memory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Storage saves files under generated names and opens them again.
type Storage interface {
	Save(dir, ext string, r io.Reader) (name string, size int64, err error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
}

// FileStorage is an afero-backed Storage rooted at a directory.
type FileStorage struct {
	fs afero.Fs
}

// NewFileStorage roots storage at dir on the OS filesystem.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", dir, err)
	}
	return &FileStorage{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewMemStorage keeps files in memory.
func NewMemStorage() *FileStorage {
	return &FileStorage{fs: afero.NewMemMapFs()}
}

// Save writes r to dir/{uuid}{ext} and returns the relative name.
func (s *FileStorage) Save(dir, ext string, r io.Reader) (string, int64, error) {
	dir = clean(dir)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	name := path.Join(dir, uuid.NewString()+strings.ToLower(ext))
	f, err := s.fs.Create(name)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", name, err)
	}
	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(name)
		return "", 0, fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, size, nil
}

func (s *FileStorage) Open(name string) (io.ReadCloser, error) {
	f, err := s.fs.Open(clean(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

func (s *FileStorage) Remove(name string) error {
	err := s.fs.Remove(clean(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

// clean keeps names relative to the storage root.
func clean(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}
