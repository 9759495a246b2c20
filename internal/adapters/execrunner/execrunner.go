// Package execrunner provides a command runner adapter using exec.CommandContext.
package execrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// ExecRunner implements ports.CommandRunner using exec.CommandContext.
type ExecRunner struct {
	// waitDelay bounds how long Run waits for I/O after the context is done.
	waitDelay time.Duration
}

// Option is a functional option for configuring ExecRunner.
type Option func(*ExecRunner)

// WithWaitDelay sets how long to wait for output pipes after cancellation.
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) {
		r.waitDelay = d
	}
}

// New creates a new ExecRunner adapter.
func New(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		waitDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes c and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c ports.Command) (ports.CommandResult, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = r.waitDelay
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(c.Env)...)
	}

	out, err := cmd.CombinedOutput()
	result := ports.CommandResult{Output: string(out)}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	result.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s interrupted: %w", c.Name, ctxErr)
	}
	return result, fmt.Errorf("starting %s: %w", c.Name, err)
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}
	return list
}

// Compile-time check that ExecRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*ExecRunner)(nil)
