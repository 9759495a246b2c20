// Package billyfs provides a ports.FileSystem adapter backed by go-billy.
// The in-memory variant backs dry runs and tests.
package billyfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// FS implements ports.FileSystem on top of a billy.Filesystem.
type FS struct {
	fs billy.Filesystem
}

// New wraps an existing billy filesystem.
func New(fsys billy.Filesystem) *FS {
	return &FS{fs: fsys}
}

// NewMemory returns an empty in-memory filesystem.
func NewMemory() *FS {
	return New(memfs.New())
}

// ReadDir reads the named directory and returns directory entries.
func (b *FS) ReadDir(name string) ([]os.DirEntry, error) {
	infos, err := b.fs.ReadDir(name)
	if err != nil {
		return nil, err
	}
	entries := make([]os.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

// Stat returns file info for the named file.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	return b.fs.Stat(name)
}

// MkdirAll creates a directory along with any necessary parents.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	return b.fs.MkdirAll(path, perm)
}

// MkdirTemp creates a uniquely named directory in dir.
func (b *FS) MkdirTemp(dir, prefix string) (string, error) {
	name, err := util.TempDir(b.fs, dir, prefix)
	if err != nil {
		return "", fmt.Errorf("billy: tempdir dir=%q prefix=%q: %w", dir, prefix, err)
	}
	return name, nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (b *FS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return util.WriteFile(b.fs, name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (b *FS) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(b.fs, name)
}

// RemoveAll removes path and any children it contains.
func (b *FS) RemoveAll(path string) error {
	return util.RemoveAll(b.fs, path)
}

// Rename renames (moves) oldpath to newpath.
func (b *FS) Rename(oldpath, newpath string) error {
	return b.fs.Rename(oldpath, newpath)
}

// Walk walks the file tree rooted at root, calling fn for each file or directory.
func (b *FS) Walk(root string, fn ports.WalkFunc) error {
	return util.Walk(b.fs, root, filepath.WalkFunc(fn))
}

// Compile-time check that FS implements ports.FileSystem.
var _ ports.FileSystem = (*FS)(nil)
