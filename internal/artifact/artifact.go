// Package artifact describes the archives a release leaves behind.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Artifact is one archive produced by the release.
type Artifact struct {
	Name    string // Archive file name, e.g. "package.zip"
	Path    string // Absolute path on disk
	Size    int64
	SHA256  string
	Entries int // Number of file entries in the archive
}

// ComputeSHA256 calculates the SHA256 hash of everything read from r.
func ComputeSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ShortSum returns the first 12 characters of the digest.
func (a Artifact) ShortSum() string {
	if len(a.SHA256) > 12 {
		return a.SHA256[:12]
	}
	return a.SHA256
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
