// Package finalize implements the success and fail steps that clean up after a
// release. On success only package.zip, assets.zip and VERSION remain in the
// release path.
package finalize

import (
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jmcdonald/wprelease/internal/adapters/osfs"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// Finalizer removes intermediate release output.
type Finalizer struct {
	fs     ports.FileSystem
	logger *slog.Logger
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithLogger sets the logger used to report cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finalizer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFinalizer creates a Finalizer operating on fsys.
func NewFinalizer(fsys ports.FileSystem, opts ...Option) *Finalizer {
	f := &Finalizer{
		fs:     fsys,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewDefaultFinalizer creates a Finalizer on the real filesystem.
func NewDefaultFinalizer(opts ...Option) *Finalizer {
	return NewFinalizer(osfs.New(), opts...)
}

// Success removes the staged tree, the staged assets and any leftover working
// directories. Calling it again is a no-op. Only a staged tree that cannot be
// removed is reported, as ECLEANUP; other failures are logged.
func (f *Finalizer) Success(cfg *config.PluginConfig, rc release.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	staged := cfg.StagedDir()
	if err := f.fs.RemoveAll(staged); err != nil {
		f.logger.Error("could not remove staged tree", "path", staged, "error", err)
		return releaseerr.Wrap(err, releaseerr.CodeCleanup, "removing staged tree").WithDetail("path", staged)
	}

	if err := f.fs.RemoveAll(cfg.AssetsDir()); err != nil {
		f.logger.Warn("could not remove staged assets", "path", cfg.AssetsDir(), "error", err)
	}
	f.removeWorkDirs(cfg)

	f.logger.Info("release finalized", "slug", cfg.Slug, "version", rc.Version, "path", cfg.ReleaseDir())
	return nil
}

// Fail removes working directories left by an interrupted run. It never
// fails: cleanup problems are logged so they cannot hide the release error.
func (f *Finalizer) Fail(cfg *config.PluginConfig, rc release.Context) {
	if err := cfg.Validate(); err != nil {
		f.logger.Warn("skipping cleanup", "error", err)
		return
	}
	removed := f.removeWorkDirs(cfg)
	f.logger.Info("cleaned up failed release", "slug", cfg.Slug, "version", rc.Version, "removed", removed)
}

// removeWorkDirs deletes every <releasePath>/.<workDir>-* directory and
// returns how many were removed.
func (f *Finalizer) removeWorkDirs(cfg *config.PluginConfig) int {
	releaseDir := cfg.ReleaseDir()
	entries, err := f.fs.ReadDir(releaseDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("could not list release path", "path", releaseDir, "error", err)
		}
		return 0
	}

	prefix := cfg.WorkDirPrefix()
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(releaseDir, e.Name())
		if err := f.fs.RemoveAll(path); err != nil {
			f.logger.Warn("could not remove working directory", "path", path, "error", err)
			continue
		}
		removed++
	}
	return removed
}
