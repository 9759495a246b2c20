// Package stage implements the prepare step: it copies the distributable part of
// a plugin into <releasePath>/<slug>, rewrites version tokens in the copy and
// writes the optional assets directory and VERSION marker.
//
// Everything is built inside a per-run working directory first and only moved
// into place once complete, so a failed prepare never leaves a staged tree that
// looks valid. The source tree is never modified.
package stage

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmcdonald/wprelease/internal/adapters/osfs"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

const stagedReadme = "readme.txt"

// maxLinkDepth bounds how many nested symlinked directories are followed.
const maxLinkDepth = 16

// Result describes what prepare produced.
type Result struct {
	StagedDir   string   // <releasePath>/<slug>
	Files       []string // Staged files relative to StagedDir, sorted
	Rewritten   []string // Files whose version token was replaced
	AssetsDir   string   // <releasePath>/assets, empty when no assets were staged
	AssetFiles  int
	VersionFile string // <releasePath>/VERSION, empty when not written
	Diffs       []FileDiff
}

// Stager copies a plugin source tree into the release path.
type Stager struct {
	src    ports.FileSystem
	dst    ports.FileSystem
	logger *slog.Logger
}

// Option configures a Stager.
type Option func(*Stager)

// WithLogger sets the logger used for progress and cleanup warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stager) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStager creates a Stager reading from src and writing to dst.
func NewStager(src, dst ports.FileSystem, opts ...Option) *Stager {
	s := &Stager{
		src:    src,
		dst:    dst,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefaultStager creates a Stager that reads and writes the real filesystem.
func NewDefaultStager(opts ...Option) *Stager {
	fs := osfs.New()
	return NewStager(fs, fs, opts...)
}

// Prepare stages cfg's source tree for release rc.
func (s *Stager) Prepare(cfg *config.PluginConfig, rc release.Context) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	source := cfg.SourceDir()
	info, err := s.src.Stat(source)
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "source path %s is not readable", source)
	}
	if !info.IsDir() {
		return nil, releaseerr.New(releaseerr.CodeStage, "source path %s is not a directory", source)
	}

	matcher, err := NewMatcher(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "invalid file pattern")
	}

	releaseDir := cfg.ReleaseDir()
	if err := s.dst.MkdirAll(releaseDir, 0755); err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "creating release path %s", releaseDir)
	}
	workDir, err := s.dst.MkdirTemp(releaseDir, cfg.WorkDirPrefix())
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "creating working directory in %s", releaseDir)
	}
	defer func() {
		if rmErr := s.dst.RemoveAll(workDir); rmErr != nil {
			s.logger.Warn("could not remove working directory", "path", workDir, "error", rmErr)
		}
	}()

	s.logger.Debug("staging source", "source", source, "work_dir", workDir)

	tree := filepath.Join(workDir, cfg.Slug)
	files, err := s.copyTree(source, tree, matcher, func(path string) bool {
		return releaseOutput(cfg, path)
	})
	if err != nil {
		return nil, err
	}

	mainFile := cfg.MainFile()
	if !containsString(files, mainFile) {
		if err := s.copyFile(filepath.Join(source, mainFile), filepath.Join(tree, mainFile)); err != nil {
			return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "copying main file %s", mainFile)
		}
		files = append(files, mainFile)
	}

	rewrite := []string{mainFile}
	if cfg.WithReadme {
		if err := s.copyFile(cfg.ReadmeSource(), filepath.Join(tree, stagedReadme)); err != nil {
			return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "copying readme").WithDetail("path", cfg.ReadmeSource())
		}
		if !containsString(files, stagedReadme) {
			files = append(files, stagedReadme)
		}
		rewrite = append(rewrite, stagedReadme)
	}
	for _, f := range cfg.VersionFiles {
		f = filepath.Clean(f)
		if !containsString(rewrite, f) {
			rewrite = append(rewrite, f)
		}
	}

	before := s.snapshot(tree, rewrite)
	if err := ReplaceVersions(s.dst, tree, rewrite, cfg.VersionPlaceholder, rc.Version); err != nil {
		return nil, err
	}
	diffs := s.rewriteDiffs(tree, rewrite, before)

	assetCount := 0
	if cfg.WithAssets {
		assetCount, err = s.stageAssets(cfg, filepath.Join(workDir, config.AssetsDirName))
		if err != nil {
			return nil, err
		}
	}

	result, err := s.moveIntoPlace(cfg, rc, workDir, assetCount > 0)
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	result.Files = files
	result.Rewritten = rewrite
	result.AssetFiles = assetCount
	result.Diffs = diffs

	s.logger.Info("staged release",
		"slug", cfg.Slug,
		"version", rc.Version,
		"files", len(files),
		"assets", assetCount,
		"path", result.StagedDir)

	return result, nil
}

// stageAssets copies the source assets directory, if any, to dst.
// A missing assets directory is not an error here; publish reports it.
func (s *Stager) stageAssets(cfg *config.PluginConfig, dst string) (int, error) {
	assetsSrc := cfg.AssetsSource()
	info, err := s.src.Stat(assetsSrc)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		s.logger.Warn("assets requested but source has none", "path", assetsSrc)
		return 0, nil
	}
	if err != nil {
		return 0, releaseerr.Wrap(err, releaseerr.CodeStage, "reading assets directory").WithDetail("path", assetsSrc)
	}

	files, err := s.copyTree(assetsSrc, dst, nil, nil)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// moveIntoPlace replaces any previous staged output with the contents of workDir
// and writes the VERSION marker.
func (s *Stager) moveIntoPlace(cfg *config.PluginConfig, rc release.Context, workDir string, withAssets bool) (*Result, error) {
	staged := cfg.StagedDir()
	assetsDir := cfg.AssetsDir()

	for _, stale := range []string{staged, assetsDir} {
		if err := s.dst.RemoveAll(stale); err != nil {
			return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "removing previous output %s", stale)
		}
	}

	if err := s.dst.Rename(filepath.Join(workDir, cfg.Slug), staged); err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "moving staged tree to %s", staged)
	}

	result := &Result{StagedDir: staged}
	if withAssets {
		if err := s.dst.Rename(filepath.Join(workDir, config.AssetsDirName), assetsDir); err != nil {
			s.discard(staged)
			return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "moving assets to %s", assetsDir)
		}
		result.AssetsDir = assetsDir
	}

	if cfg.WithVersionFile {
		path := cfg.VersionFilePath()
		if err := s.dst.WriteFile(path, []byte(rc.Version+"\n"), 0644); err != nil {
			s.discard(staged, assetsDir)
			return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "writing %s", path)
		}
		result.VersionFile = path
	}

	return result, nil
}

// copyTree copies every selected regular file below src to dst and returns the
// copied paths relative to src. A nil matcher copies everything. Paths for
// which skip returns true are left out. Symlinks are copied as their targets.
func (s *Stager) copyTree(src, dst string, m *Matcher, skip func(string) bool) ([]string, error) {
	var files []string

	err := s.src.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return releaseerr.Wrap(err, releaseerr.CodeStage, "reading %s", path)
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return releaseerr.Wrap(err, releaseerr.CodeStage, "resolving %s", path)
		}
		if rel == "." {
			if info.Mode()&os.ModeSymlink != 0 {
				return s.copyResolved(path, rel, dst, m, 0, &files)
			}
			return nil
		}

		if skip != nil && skip(path) {
			s.logger.Debug("skipping release output inside source", "path", path)
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if m != nil && m.Excluded(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Directories are created implicitly; non-included ones are still
		// descended into so patterns like "inc/*.php" work.
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return s.copyResolved(path, rel, dst, m, 0, &files)
		}
		return s.copySelected(path, rel, dst, info, m, &files)
	})
	if err != nil {
		var relErr *releaseerr.Error
		if errors.As(err, &relErr) {
			return nil, err
		}
		return nil, releaseerr.Wrap(err, releaseerr.CodeStage, "walking %s", src)
	}

	return files, nil
}

// copyResolved copies the target of the symlink at path. Linked directories
// are read entry by entry, following at most maxLinkDepth nested links.
func (s *Stager) copyResolved(path, rel, dst string, m *Matcher, depth int, files *[]string) error {
	if depth > maxLinkDepth {
		return releaseerr.New(releaseerr.CodeStage, "too many levels of symbolic links at %s", rel).WithDetail("path", path)
	}
	info, err := s.src.Stat(path)
	if err != nil {
		return releaseerr.Wrap(err, releaseerr.CodeStage, "resolving symlink %s", rel).WithDetail("path", path)
	}
	if !info.IsDir() {
		return s.copySelected(path, rel, dst, info, m, files)
	}

	entries, err := s.src.ReadDir(path)
	if err != nil {
		return releaseerr.Wrap(err, releaseerr.CodeStage, "reading %s", rel).WithDetail("path", path)
	}
	for _, e := range entries {
		childRel := filepath.Join(rel, e.Name())
		if m != nil && m.Excluded(childRel) {
			continue
		}
		next := depth
		if e.Type()&os.ModeSymlink != 0 {
			next++
		}
		if err := s.copyResolved(filepath.Join(path, e.Name()), childRel, dst, m, next, files); err != nil {
			return err
		}
	}
	return nil
}

// copySelected copies the regular file at path when m includes rel.
func (s *Stager) copySelected(path, rel, dst string, info os.FileInfo, m *Matcher, files *[]string) error {
	if !info.Mode().IsRegular() {
		s.logger.Warn("skipping special file", "path", path, "mode", info.Mode().String())
		return nil
	}
	if m != nil && !m.Included(rel) {
		return nil
	}
	if err := s.copyFileMode(path, filepath.Join(dst, rel), info.Mode().Perm()); err != nil {
		return releaseerr.Wrap(err, releaseerr.CodeStage, "copying %s", rel)
	}
	*files = append(*files, rel)
	return nil
}

// snapshot reads the files about to be rewritten. Unreadable files are left
// out; ReplaceVersions reports them.
func (s *Stager) snapshot(dir string, files []string) map[string][]byte {
	out := make(map[string][]byte, len(files))
	for _, name := range files {
		if data, err := s.dst.ReadFile(filepath.Join(dir, name)); err == nil {
			out[name] = data
		}
	}
	return out
}

func (s *Stager) rewriteDiffs(dir string, files []string, before map[string][]byte) []FileDiff {
	var diffs []FileDiff
	for _, name := range files {
		old, ok := before[name]
		if !ok {
			continue
		}
		data, err := s.dst.ReadFile(filepath.Join(dir, name))
		if err != nil {
			s.logger.Debug("could not read rewritten file", "path", name, "error", err)
			continue
		}
		if d := ComputeFileDiff(name, string(old), string(data)); len(d.Lines) > 0 {
			diffs = append(diffs, d)
		}
	}
	return diffs
}

// releaseOutput reports whether path holds output of this or an earlier run.
// That only happens when the release path lies inside the source tree.
func releaseOutput(cfg *config.PluginConfig, path string) bool {
	releaseDir := cfg.ReleaseDir()
	if path == releaseDir {
		return true
	}
	if filepath.Dir(path) != releaseDir {
		return false
	}
	switch base := filepath.Base(path); base {
	case cfg.Slug, config.AssetsDirName, config.PackageArchive, config.AssetsArchive, config.VersionFile:
		return true
	default:
		return strings.HasPrefix(base, cfg.WorkDirPrefix())
	}
}

func (s *Stager) copyFile(src, dst string) error {
	info, err := s.src.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "copy", Path: src, Err: errors.New("is a directory")}
	}
	return s.copyFileMode(src, dst, info.Mode().Perm())
}

func (s *Stager) copyFileMode(src, dst string, perm os.FileMode) error {
	data, err := s.src.ReadFile(src)
	if err != nil {
		return err
	}
	if err := s.dst.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return s.dst.WriteFile(dst, data, perm)
}

// discard removes partially moved output after a failure.
func (s *Stager) discard(paths ...string) {
	for _, p := range paths {
		if err := s.dst.RemoveAll(p); err != nil {
			s.logger.Warn("could not remove partial output", "path", p, "error", err)
		}
	}
}

// fileModeOr returns the permission bits of path, or fallback if it cannot be stat'ed.
func fileModeOr(fsys ports.FileSystem, path string, fallback os.FileMode) os.FileMode {
	info, err := fsys.Stat(path)
	if err != nil {
		return fallback
	}
	return info.Mode().Perm()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
