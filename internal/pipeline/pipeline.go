// Package pipeline drives the three release stages in order and is the entry
// point used by the CLI and the TUI.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmcdonald/wprelease/internal/adapters/billyfs"
	"github.com/jmcdonald/wprelease/internal/adapters/osfs"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/finalize"
	"github.com/jmcdonald/wprelease/internal/metrics"
	"github.com/jmcdonald/wprelease/internal/publish"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
	"github.com/jmcdonald/wprelease/internal/stage"
)

// Stage names used in logs and metrics.
const (
	StagePrepare = "prepare"
	StagePublish = "publish"
	StageSuccess = "success"
	StageFail    = "fail"
	StageVerify  = "verify"
)

// Preparer stages the source tree.
type Preparer interface {
	Prepare(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error)
}

// Publisher builds the release archives.
type Publisher interface {
	Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*publish.Result, error)
}

// Finalizer cleans up after a release.
type Finalizer interface {
	Success(cfg *config.PluginConfig, rc release.Context) error
	Fail(cfg *config.PluginConfig, rc release.Context)
}

// Report collects the output of a full run.
type Report struct {
	Stage   *stage.Result
	Publish *publish.Result
}

// Pipeline runs prepare, publish and success, falling back to fail.
type Pipeline struct {
	preparer  Preparer
	publisher Publisher
	finalizer Finalizer
	dryRun    func(logger *slog.Logger) Preparer

	logger  *slog.Logger
	metrics metrics.Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. NewDefault passes it on to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the recorder that receives stage outcomes.
func WithMetrics(r metrics.Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.metrics = r
		}
	}
}

// New creates a Pipeline from explicit stages.
func New(preparer Preparer, publisher Publisher, finalizer Finalizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		preparer:  preparer,
		publisher: publisher,
		finalizer: finalizer,
		dryRun:    memoryStager,
		logger:    slog.New(slog.DiscardHandler),
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewDefault creates a Pipeline working on the real filesystem with the
// external archiver.
func NewDefault(opts ...Option) *Pipeline {
	p := New(nil, nil, nil, opts...)
	p.preparer = stage.NewDefaultStager(stage.WithLogger(p.logger))
	p.publisher = publish.NewDefaultPublisher(publish.WithLogger(p.logger))
	p.finalizer = finalize.NewDefaultFinalizer(finalize.WithLogger(p.logger))
	return p
}

// memoryStager reads the real source tree and stages into memory.
func memoryStager(logger *slog.Logger) Preparer {
	return stage.NewStager(osfs.New(), billyfs.NewMemory(), stage.WithLogger(logger))
}

// Prepare runs the prepare stage.
func (p *Pipeline) Prepare(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error) {
	start := time.Now()
	res, err := p.preparer.Prepare(cfg, rc)
	p.record(StagePrepare, err, start)
	return res, err
}

// Publish runs the publish stage.
func (p *Pipeline) Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*publish.Result, error) {
	start := time.Now()
	res, err := p.publisher.Publish(ctx, cfg, rc)
	p.record(StagePublish, err, start)
	if err == nil {
		for _, a := range res.Artifacts() {
			p.metrics.RecordArtifact(a)
		}
	}
	return res, err
}

// Success runs the success stage.
func (p *Pipeline) Success(cfg *config.PluginConfig, rc release.Context) error {
	start := time.Now()
	err := p.finalizer.Success(cfg, rc)
	p.record(StageSuccess, err, start)
	return err
}

// Fail runs the fail stage. It never returns an error.
func (p *Pipeline) Fail(cfg *config.PluginConfig, rc release.Context) {
	start := time.Now()
	p.finalizer.Fail(cfg, rc)
	p.record(StageFail, nil, start)
}

// Verify stages the release into memory without touching the release path, so
// configuration and version tokens can be checked ahead of a real run.
func (p *Pipeline) Verify(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error) {
	start := time.Now()
	res, err := p.dryRun(p.logger).Prepare(cfg, rc)
	p.record(StageVerify, err, start)
	return res, err
}

// Run executes prepare, publish and success. When a stage fails, fail is run
// and the stage's error is returned unchanged.
func (p *Pipeline) Run(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*Report, error) {
	report := &Report{}

	res, err := p.Prepare(cfg, rc)
	if err != nil {
		return report, p.abort(cfg, rc, StagePrepare, err)
	}
	report.Stage = res

	if err := ctx.Err(); err != nil {
		return report, p.abort(cfg, rc, StagePublish,
			releaseerr.Wrap(err, releaseerr.CodeArchive, "release interrupted before archiving"))
	}

	pub, err := p.Publish(ctx, cfg, rc)
	if err != nil {
		return report, p.abort(cfg, rc, StagePublish, err)
	}
	report.Publish = pub

	if err := p.Success(cfg, rc); err != nil {
		return report, p.abort(cfg, rc, StageSuccess, err)
	}

	p.logger.Info("release packaged", "slug", cfg.Slug, "version", rc.Version, "path", cfg.ReleaseDir())
	return report, nil
}

func (p *Pipeline) abort(cfg *config.PluginConfig, rc release.Context, name string, err error) error {
	p.logger.Error("release stage failed", "stage", name, "error", err)
	p.Fail(cfg, rc)
	return err
}

func (p *Pipeline) record(name string, err error, start time.Time) {
	d := time.Since(start)
	p.metrics.RecordStage(name, err, d)
	if err == nil {
		p.logger.Debug("stage complete", "stage", name, "duration", d)
	}
}
