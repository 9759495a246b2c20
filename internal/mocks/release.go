package mocks

import (
	"context"

	"github.com/jmcdonald/wprelease/internal/artifact"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/pipeline"
	"github.com/jmcdonald/wprelease/internal/publish"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/stage"
)

// MockReleaseService implements the release operations used by the CLI and
// the TUI, mirroring pipeline.Pipeline.
type MockReleaseService struct {
	// StageResult is returned from Prepare and Verify
	StageResult *stage.Result
	// PublishResult is returned from Publish
	PublishResult *publish.Result
	// Errors maps stage names ("prepare", "publish", "success", "verify") to errors
	Errors map[string]error

	// Calls records stage names in call order
	Calls []string
	// Contexts records the release context of every call
	Contexts []release.Context
	// PublishContext is the context passed to the last Publish call
	PublishContext context.Context
}

// NewMockReleaseService creates a service whose stages all succeed.
func NewMockReleaseService() *MockReleaseService {
	return &MockReleaseService{
		StageResult: &stage.Result{
			StagedDir: "/tmp/wp-release-test/test",
			Files:     []string{"test.php"},
			Rewritten: []string{"test.php"},
			Diffs: []stage.FileDiff{{
				Path: "test.php",
				Lines: []stage.DiffLine{
					{LineNum: 3, Type: '-', Content: " * Version: 0.0.0"},
					{LineNum: 3, Type: '+', Content: " * Version: 1.0.0"},
				},
			}},
		},
		PublishResult: &publish.Result{
			Package: &artifact.Artifact{
				Name:    config.PackageArchive,
				Path:    "/tmp/wp-release-test/package.zip",
				Size:    1024,
				SHA256:  "0123456789abcdef0123456789abcdef",
				Entries: 1,
			},
		},
		Errors: make(map[string]error),
	}
}

func (m *MockReleaseService) call(name string, rc release.Context) error {
	m.Calls = append(m.Calls, name)
	m.Contexts = append(m.Contexts, rc)
	return m.Errors[name]
}

// Prepare records the call and returns StageResult.
func (m *MockReleaseService) Prepare(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error) {
	if err := m.call(pipeline.StagePrepare, rc); err != nil {
		return nil, err
	}
	return m.StageResult, nil
}

// Publish records the call and returns PublishResult.
func (m *MockReleaseService) Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*publish.Result, error) {
	m.PublishContext = ctx
	if err := m.call(pipeline.StagePublish, rc); err != nil {
		return nil, err
	}
	return m.PublishResult, nil
}

// Success records the call.
func (m *MockReleaseService) Success(cfg *config.PluginConfig, rc release.Context) error {
	return m.call(pipeline.StageSuccess, rc)
}

// Fail records the call.
func (m *MockReleaseService) Fail(cfg *config.PluginConfig, rc release.Context) {
	_ = m.call(pipeline.StageFail, rc)
}

// Verify records the call and returns StageResult.
func (m *MockReleaseService) Verify(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error) {
	if err := m.call(pipeline.StageVerify, rc); err != nil {
		return nil, err
	}
	return m.StageResult, nil
}

// Run chains the stages the way pipeline.Pipeline.Run does.
func (m *MockReleaseService) Run(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*pipeline.Report, error) {
	report := &pipeline.Report{}
	res, err := m.Prepare(cfg, rc)
	if err != nil {
		m.Fail(cfg, rc)
		return report, err
	}
	report.Stage = res

	pub, err := m.Publish(ctx, cfg, rc)
	if err != nil {
		m.Fail(cfg, rc)
		return report, err
	}
	report.Publish = pub

	if err := m.Success(cfg, rc); err != nil {
		m.Fail(cfg, rc)
		return report, err
	}
	return report, nil
}
