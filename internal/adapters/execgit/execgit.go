// Package execgit provides a git client adapter using exec.Command.
package execgit

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jmcdonald/wprelease/internal/ports"
)

// ExecGitClient implements ports.GitClient using exec.Command.
type ExecGitClient struct{}

// New creates a new ExecGitClient adapter.
func New() *ExecGitClient {
	return &ExecGitClient{}
}

// GetHead returns the current HEAD commit hash for the repository.
// Returns empty string if not a git repo or on error.
func (g *ExecGitClient) GetHead(repoPath string) string {
	return g.revParse(repoPath, "HEAD")
}

// Branch returns the checked-out branch name, or empty string when detached.
func (g *ExecGitClient) Branch(repoPath string) string {
	branch := g.revParse(repoPath, "--abbrev-ref", "HEAD")
	if branch == "HEAD" {
		return ""
	}
	return branch
}

// IsRepo checks if the given path is a git repository.
// Plugins often live in a subdirectory, so parent directories are checked too.
func (g *ExecGitClient) IsRepo(path string) bool {
	dir, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

func (g *ExecGitClient) revParse(repoPath string, args ...string) string {
	cmd := exec.Command("git", append([]string{"rev-parse"}, args...)...)
	cmd.Dir = repoPath
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Compile-time check that ExecGitClient implements ports.GitClient.
var _ ports.GitClient = (*ExecGitClient)(nil)
