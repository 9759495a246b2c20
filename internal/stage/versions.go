package stage

import (
	"bytes"
	"path/filepath"

	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// ReplaceVersions substitutes every literal occurrence of from with to in each
// of files, resolved against dir.
//
// Every file is checked before any is written: if from is missing from one of
// them nothing is modified and an ESTAGE error names the file. When from equals
// to the check still runs and no file is rewritten.
func ReplaceVersions(fsys ports.FileSystem, dir string, files []string, from, to string) error {
	if from == "" {
		return releaseerr.New(releaseerr.CodeStage, "version token to replace is empty")
	}

	type pending struct {
		path string
		data []byte
	}
	var writes []pending

	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := fsys.ReadFile(path)
		if err != nil {
			return releaseerr.Wrap(err, releaseerr.CodeStage, "reading %s", name).WithDetail("path", path)
		}
		if !bytes.Contains(data, []byte(from)) {
			return releaseerr.New(releaseerr.CodeStage, "version token %q not found in %s", from, name).WithDetail("path", path)
		}
		if from == to {
			continue
		}
		writes = append(writes, pending{path: path, data: bytes.ReplaceAll(data, []byte(from), []byte(to))})
	}

	for _, w := range writes {
		perm := fileModeOr(fsys, w.path, 0644)
		if err := fsys.WriteFile(w.path, w.data, perm); err != nil {
			return releaseerr.Wrap(err, releaseerr.CodeStage, "writing %s", w.path)
		}
	}
	return nil
}
