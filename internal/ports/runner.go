package ports

import "context"

// Command describes one external process invocation.
type Command struct {
	Name string            // Binary name or path
	Args []string          // Arguments, not including Name
	Dir  string            // Working directory
	Env  map[string]string // Extra environment, appended to the current one
}

// CommandResult is the outcome of a process that ran to completion.
type CommandResult struct {
	ExitCode int
	Output   string // Combined stdout and stderr
}

// CommandRunner runs external processes.
// Production code uses the execrunner adapter; tests use MockCommandRunner.
type CommandRunner interface {
	// Run executes cmd and waits for it. A process that starts and exits non-zero
	// is reported through CommandResult.ExitCode with a nil error; an error is
	// returned only when the process could not be started or was interrupted.
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}
