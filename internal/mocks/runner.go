package mocks

import (
	"context"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// MockCommandRunner implements ports.CommandRunner for testing.
type MockCommandRunner struct {
	// Calls records every command passed to Run
	Calls []ports.Command
	// Results maps binary names to the result returned for them
	Results map[string]ports.CommandResult
	// Errors maps binary names to start errors (e.g. exec.ErrNotFound)
	Errors map[string]error
	// OnRun, when set, is called instead of the Results/Errors lookup.
	// Tests use it to write the archive a real archiver would produce.
	OnRun func(ctx context.Context, cmd ports.Command) (ports.CommandResult, error)
}

// NewMockCommandRunner creates a runner whose commands all exit 0.
func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{
		Results: make(map[string]ports.CommandResult),
		Errors:  make(map[string]error),
	}
}

// Run records cmd and returns the configured outcome.
func (m *MockCommandRunner) Run(ctx context.Context, cmd ports.Command) (ports.CommandResult, error) {
	m.Calls = append(m.Calls, cmd)
	if m.OnRun != nil {
		return m.OnRun(ctx, cmd)
	}
	if err, ok := m.Errors[cmd.Name]; ok {
		return ports.CommandResult{ExitCode: -1}, err
	}
	if res, ok := m.Results[cmd.Name]; ok {
		return res, nil
	}
	return ports.CommandResult{}, nil
}

// Compile-time check that MockCommandRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*MockCommandRunner)(nil)
