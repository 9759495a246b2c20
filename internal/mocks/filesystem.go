// Package mocks provides mock implementations for testing.
package mocks

import (
	"os"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// MockFileSystem wraps a real ports.FileSystem (usually the in-memory billy
// adapter) and injects failures for chosen paths.
type MockFileSystem struct {
	ports.FileSystem

	// Errors maps paths to errors returned by any operation on that path
	Errors map[string]error
	// Calls records "Op path" for every call
	Calls []string
}

// NewMockFileSystem wraps base.
func NewMockFileSystem(base ports.FileSystem) *MockFileSystem {
	return &MockFileSystem{
		FileSystem: base,
		Errors:     make(map[string]error),
	}
}

func (m *MockFileSystem) fail(op, path string) error {
	m.Calls = append(m.Calls, op+" "+path)
	return m.Errors[path]
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err := m.fail("ReadDir", name); err != nil {
		return nil, err
	}
	return m.FileSystem.ReadDir(name)
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.fail("Stat", name); err != nil {
		return nil, err
	}
	return m.FileSystem.Stat(name)
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.fail("MkdirAll", path); err != nil {
		return err
	}
	return m.FileSystem.MkdirAll(path, perm)
}

// MkdirTemp creates a uniquely named directory in dir.
func (m *MockFileSystem) MkdirTemp(dir, prefix string) (string, error) {
	if err := m.fail("MkdirTemp", dir); err != nil {
		return "", err
	}
	return m.FileSystem.MkdirTemp(dir, prefix)
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.fail("WriteFile", name); err != nil {
		return err
	}
	return m.FileSystem.WriteFile(name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.fail("ReadFile", name); err != nil {
		return nil, err
	}
	return m.FileSystem.ReadFile(name)
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	if err := m.fail("RemoveAll", path); err != nil {
		return err
	}
	return m.FileSystem.RemoveAll(path)
}

// Rename renames (moves) oldpath to newpath.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if err := m.fail("Rename", oldpath); err != nil {
		return err
	}
	return m.FileSystem.Rename(oldpath, newpath)
}

// Walk walks the file tree rooted at root, calling fn for each file or directory.
func (m *MockFileSystem) Walk(root string, fn ports.WalkFunc) error {
	if err := m.fail("Walk", root); err != nil {
		return err
	}
	return m.FileSystem.Walk(root, fn)
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
