// Package release describes the release being packaged. The context is built by
// the orchestrator that drives the pipeline and is read-only to the stages.
package release

import (
	"github.com/Masterminds/semver/v3"

	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// Context carries the next release version and the environment metadata the
// orchestrator knows about.
type Context struct {
	Version     string            // Next release version, written into staged files
	LastVersion string            // Previously released version, empty on first release
	Channel     string            // Distribution channel (e.g. "beta"), empty for default
	Branch      string            // Branch the release is cut from
	Commit      string            // Commit the release is cut from
	Env         map[string]string // Extra orchestrator metadata
}

// Validate checks that Version is a semantic version and, when LastVersion is
// set, that it moves forward.
func (c Context) Validate() error {
	if c.Version == "" {
		return releaseerr.New(releaseerr.CodeInvalidVersion, "release version is empty")
	}
	next, err := semver.NewVersion(c.Version)
	if err != nil {
		return releaseerr.Wrap(err, releaseerr.CodeInvalidVersion, "invalid release version %q", c.Version)
	}
	if c.LastVersion == "" {
		return nil
	}
	last, err := semver.NewVersion(c.LastVersion)
	if err != nil {
		return releaseerr.Wrap(err, releaseerr.CodeInvalidVersion, "invalid last version %q", c.LastVersion)
	}
	if !next.GreaterThan(last) {
		return releaseerr.New(releaseerr.CodeInvalidVersion, "release version %s is not greater than %s", c.Version, c.LastVersion)
	}
	return nil
}

// IsPrerelease reports whether Version carries a prerelease suffix.
func (c Context) IsPrerelease() bool {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}

// ShortCommit returns the first 7 characters of Commit.
func (c Context) ShortCommit() string {
	if len(c.Commit) > 7 {
		return c.Commit[:7]
	}
	return c.Commit
}
