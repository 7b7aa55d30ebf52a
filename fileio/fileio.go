// Package fileio reads and writes whole files through an afero filesystem,
// so callers can run against the OS or an in-memory tree.
package fileio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	DefaultFileMode os.FileMode = 0o644
	DefaultDirMode  os.FileMode = 0o755
)

// ErrNotFound is returned when reading or removing a missing file.
var ErrNotFound = errors.New("file not found")

type FS struct {
	fs afero.Fs
}

// New wraps fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *FS {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FS{fs: fs}
}

func NewOS() *FS {
	return New(afero.NewOsFs())
}

// NewMem returns an empty in-memory filesystem.
func NewMem() *FS {
	return New(afero.NewMemMapFs())
}

// Afero exposes the underlying filesystem.
func (f *FS) Afero() afero.Fs {
	return f.fs
}

func (f *FS) ReadBytes(path string) ([]byte, error) {
	data, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, wrap("read", path, err)
	}
	return data, nil
}

func (f *FS) ReadText(path string) (string, error) {
	data, err := f.ReadBytes(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteBytes replaces the content of path, creating missing parent
// directories.
func (f *FS) WriteBytes(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := f.fs.MkdirAll(dir, DefaultDirMode); err != nil {
			return wrap("mkdir", dir, err)
		}
	}
	if err := afero.WriteFile(f.fs, path, data, DefaultFileMode); err != nil {
		return wrap("write", path, err)
	}
	return nil
}

func (f *FS) WriteText(path, text string) error {
	return f.WriteBytes(path, []byte(text))
}

// Exists reports whether path exists. Errors other than not-exist are
// returned.
func (f *FS) Exists(path string) (bool, error) {
	ok, err := afero.Exists(f.fs, path)
	if err != nil {
		return false, wrap("stat", path, err)
	}
	return ok, nil
}

// Remove deletes a file or an empty directory.
func (f *FS) Remove(path string) error {
	if err := f.fs.Remove(path); err != nil {
		return wrap("remove", path, err)
	}
	return nil
}

func wrap(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("fileio: %s %s: %w", op, path, errors.Join(ErrNotFound, err))
	}
	return fmt.Errorf("fileio: %s %s: %w", op, path, err)
}
