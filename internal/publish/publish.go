// Package publish implements the archive step. It runs the external archiver
// over the staged tree (and the staged assets) and checks that every archive it
// was asked for exists and is a readable zip before reporting success.
package publish

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmcdonald/wprelease/internal/adapters/execrunner"
	"github.com/jmcdonald/wprelease/internal/adapters/osfs"
	"github.com/jmcdonald/wprelease/internal/adapters/zipinspect"
	"github.com/jmcdonald/wprelease/internal/artifact"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// maxOutputDetail caps archiver output attached to errors.
const maxOutputDetail = 2048

// Result holds the archives produced by a publish run.
type Result struct {
	Package *artifact.Artifact
	Assets  *artifact.Artifact // nil unless assets were requested
}

// Artifacts returns the produced archives in creation order.
func (r *Result) Artifacts() []*artifact.Artifact {
	out := []*artifact.Artifact{r.Package}
	if r.Assets != nil {
		out = append(out, r.Assets)
	}
	return out
}

// Publisher builds release archives with an external archiver.
type Publisher struct {
	fs     ports.FileSystem
	runner ports.CommandRunner
	reader ports.ArchiveReader
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a Publisher with explicit dependencies.
func NewPublisher(fs ports.FileSystem, runner ports.CommandRunner, reader ports.ArchiveReader, opts ...Option) *Publisher {
	p := &Publisher{
		fs:     fs,
		runner: runner,
		reader: reader,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDefaultPublisher creates a Publisher using the real filesystem, os/exec and archive/zip.
func NewDefaultPublisher(opts ...Option) *Publisher {
	return NewPublisher(osfs.New(), execrunner.New(), zipinspect.New(), opts...)
}

// Publish archives the staged tree into package.zip and, when configured, the
// staged assets into assets.zip. The staged tree is left in place.
func (p *Publisher) Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	staged := cfg.StagedDir()
	if !p.isDir(staged) {
		return nil, releaseerr.New(releaseerr.CodeArchive, "staged tree not found, run prepare first").
			WithDetail("path", staged)
	}
	if cfg.WithAssets && !p.isDir(cfg.AssetsDir()) {
		return nil, releaseerr.New(releaseerr.CodeArchive, "assets requested but no staged assets directory exists").
			WithDetail("path", cfg.AssetsDir())
	}

	for _, stale := range []string{cfg.PackagePath(), cfg.AssetsArchivePath()} {
		if err := p.fs.RemoveAll(stale); err != nil {
			return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "removing stale archive").WithDetail("path", stale)
		}
	}

	command := cfg.ArchiverCommand()
	p.logger.Debug("archiving release", "command", command, "version", rc.Version, "release_path", cfg.ReleaseDir())

	pkg, err := p.archive(ctx, cfg, command, config.PackageArchive, cfg.Slug)
	if err != nil {
		return nil, err
	}
	result := &Result{Package: pkg}

	if cfg.WithAssets {
		assets, err := p.archive(ctx, cfg, command, config.AssetsArchive, config.AssetsDirName)
		if err != nil {
			return nil, err
		}
		result.Assets = assets
	}

	for _, a := range result.Artifacts() {
		p.logger.Info("created archive",
			"name", a.Name,
			"size", artifact.FormatSize(a.Size),
			"entries", a.Entries,
			"sha256", a.ShortSum())
	}
	return result, nil
}

// archive runs `<command> -r -q <name> <dir>` in the release path and verifies
// the output contains dir/ at its top level.
func (p *Publisher) archive(ctx context.Context, cfg *config.PluginConfig, command, name, dir string) (*artifact.Artifact, error) {
	releaseDir := cfg.ReleaseDir()
	out := filepath.Join(releaseDir, name)

	res, err := p.runner.Run(ctx, ports.Command{
		Name: command,
		Args: []string{"-r", "-q", name, dir},
		Dir:  releaseDir,
	})
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "running archiver for %s", name).
			WithDetail("command", command).
			WithDetail("path", out)
	}
	if res.ExitCode != 0 {
		return nil, releaseerr.New(releaseerr.CodeArchive, "archiver failed creating %s", name).
			WithDetail("command", command).
			WithDetail("exit_code", strconv.Itoa(res.ExitCode)).
			WithDetail("output", truncate(strings.TrimSpace(res.Output), maxOutputDetail)).
			WithDetail("path", out)
	}

	info, err := p.fs.Stat(out)
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "archiver reported success but %s is missing", name).
			WithDetail("command", command).
			WithDetail("path", out)
	}

	entries, err := p.reader.List(out)
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "%s is not a readable zip", name).
			WithDetail("path", out)
	}
	if !hasTopLevelDir(entries, dir) {
		return nil, releaseerr.New(releaseerr.CodeArchive, "%s does not contain %s/", name, dir).
			WithDetail("path", out)
	}

	data, err := p.fs.ReadFile(out)
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "reading %s", name).WithDetail("path", out)
	}
	sum, err := artifact.ComputeSHA256(bytes.NewReader(data))
	if err != nil {
		return nil, releaseerr.Wrap(err, releaseerr.CodeArchive, "hashing %s", name).WithDetail("path", out)
	}

	return &artifact.Artifact{
		Name:    name,
		Path:    out,
		Size:    info.Size(),
		SHA256:  sum,
		Entries: len(entries),
	}, nil
}

func (p *Publisher) isDir(path string) bool {
	info, err := p.fs.Stat(path)
	return err == nil && info.IsDir()
}

func hasTopLevelDir(entries map[string]ports.FileInfo, dir string) bool {
	prefix := dir + "/"
	for name := range entries {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
