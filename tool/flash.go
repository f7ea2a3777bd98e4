package tool

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Flash is the flash-backed file store holding the persisted document.
type Flash interface {
	// Mount makes the store usable. Failure means the station has no writable storage.
	Mount() error
	Exists(name string) bool
	Open(name string) (io.ReadCloser, error)
	// Create opens name for full overwrite, truncating any existing content.
	Create(name string) (io.WriteCloser, error)
	Rename(from, to string) error
	Remove(name string) error
}

// DirFlash stores documents as files in a directory, usually the flash partition mount point.
type DirFlash struct {
	Dir string
}

var _ Flash = (*DirFlash)(nil)

func NewDirFlash(dir string) *DirFlash {
	return &DirFlash{Dir: dir}
}

func (f *DirFlash) path(name string) string {
	return filepath.Join(f.Dir, filepath.Clean("/"+name))
}

// Mount creates the directory if needed and verifies that it is writable.
func (f *DirFlash) Mount() error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create flash directory %s: %w", f.Dir, err)
	}
	info, err := os.Stat(f.Dir)
	if err != nil {
		return fmt.Errorf("failed to stat flash directory %s: %w", f.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("flash path is not a directory: %s", f.Dir)
	}
	marker, err := os.CreateTemp(f.Dir, ".mount-check-*")
	if err != nil {
		return fmt.Errorf("flash directory %s is not writable: %w", f.Dir, err)
	}
	name := marker.Name()
	_ = marker.Close()
	return os.Remove(name)
}

func (f *DirFlash) Exists(name string) bool {
	info, err := os.Stat(f.path(name))
	return err == nil && !info.IsDir()
}

func (f *DirFlash) Open(name string) (io.ReadCloser, error) {
	return os.Open(f.path(name))
}

func (f *DirFlash) Create(name string) (io.WriteCloser, error) {
	return os.OpenFile(f.path(name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
}

func (f *DirFlash) Rename(from, to string) error {
	return os.Rename(f.path(from), f.path(to))
}

// Remove deletes name. A missing file is not an error.
func (f *DirFlash) Remove(name string) error {
	err := os.Remove(f.path(name))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
