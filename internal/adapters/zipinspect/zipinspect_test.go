package zipinspect

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Failed to close file: %v", err)
	}
}

func TestList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.zip")
	writeZip(t, path, map[string]string{
		"dist-test/":                "",
		"dist-test/dist-test.php":   "<?php // Version: 1.0.0",
		"dist-test/vendor/load.php": "<?php",
	})

	files, err := New().List(path)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(files) != 2 {
		t.Errorf("List returned %d entries, expected 2 (directories skipped)", len(files))
	}
	info, ok := files["dist-test/dist-test.php"]
	if !ok {
		t.Fatal("dist-test/dist-test.php missing from listing")
	}
	if info.Size != int64(len("<?php // Version: 1.0.0")) {
		t.Errorf("Size = %d, expected %d", info.Size, len("<?php // Version: 1.0.0"))
	}
}

func TestListNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := New().List(path); err == nil {
		t.Error("List should fail for a non-zip file")
	}
}

func TestListMissing(t *testing.T) {
	if _, err := New().List(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Error("List should fail for a missing file")
	}
}
