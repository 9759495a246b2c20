// Package zipinspect reads archives produced by the external archiver so the
// release can be validated before it is reported as complete.
package zipinspect

import (
	"archive/zip"
	"math"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// Inspector implements ports.ArchiveReader using archive/zip.
type Inspector struct{}

// New creates a new Inspector adapter.
func New() *Inspector {
	return &Inspector{}
}

// List returns a map of entry names to their info. Directory entries are skipped.
func (i *Inspector) List(zipPath string) (map[string]ports.FileInfo, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	files := make(map[string]ports.FileInfo)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Safe conversion: check for overflow before uint64 -> int64
		size := int64(0)
		if f.UncompressedSize64 <= math.MaxInt64 {
			size = int64(f.UncompressedSize64)
		}
		files[f.Name] = ports.FileInfo{
			Size:  size,
			CRC32: f.CRC32,
		}
	}

	return files, nil
}

// Compile-time check that Inspector implements ports.ArchiveReader.
var _ ports.ArchiveReader = (*Inspector)(nil)
