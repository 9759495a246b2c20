package mocks

import (
	"os"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// MockArchiveReader implements ports.ArchiveReader for testing.
type MockArchiveReader struct {
	// ListResults maps zip paths to file listings
	ListResults map[string]map[string]ports.FileInfo
	// Errors maps zip paths to errors
	Errors map[string]error
	// ListCalls records the zip paths passed to List
	ListCalls []string
}

// NewMockArchiveReader creates a new mock archive reader.
func NewMockArchiveReader() *MockArchiveReader {
	return &MockArchiveReader{
		ListResults: make(map[string]map[string]ports.FileInfo),
		Errors:      make(map[string]error),
	}
}

// List returns the configured listing for zipPath. Unknown paths behave like
// a missing file.
func (m *MockArchiveReader) List(zipPath string) (map[string]ports.FileInfo, error) {
	m.ListCalls = append(m.ListCalls, zipPath)
	if err, ok := m.Errors[zipPath]; ok {
		return nil, err
	}
	if result, ok := m.ListResults[zipPath]; ok {
		return result, nil
	}
	return nil, os.ErrNotExist
}

// Compile-time check that MockArchiveReader implements ports.ArchiveReader.
var _ ports.ArchiveReader = (*MockArchiveReader)(nil)
