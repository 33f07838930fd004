// Package osfilesystem implements ports.FileSystem on the local disk.
package osfilesystem

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/decodebridge/pkg/ports"
)

const (
	filePerm fs.FileMode = 0o644
	dirPerm  fs.FileMode = 0o755
)

// FileSystem is the os-backed ports.FileSystem. Writes create missing
// parent directories.
type FileSystem struct{}

// New returns a FileSystem.
func New() *FileSystem { return &FileSystem{} }

func (*FileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (*FileSystem) Open(path string) (io.ReadCloser, error) { return os.Open(path) }

func (*FileSystem) MkdirAll(path string) error { return os.MkdirAll(path, dirPerm) }

func (*FileSystem) WriteFile(path string, data []byte) error {
	if err := mkdirParent(path); err != nil {
		return err
	}
	return os.WriteFile(path, data, filePerm)
}

func (*FileSystem) Create(path string) (io.WriteCloser, error) {
	if err := mkdirParent(path); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
}

// Exists reports false without error only for a missing path.
func (*FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func mkdirParent(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, dirPerm)
	}
	return nil
}

var _ ports.FileSystem = (*FileSystem)(nil)
