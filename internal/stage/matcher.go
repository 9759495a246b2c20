package stage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// Matcher decides which source paths are staged.
//
// A pattern selects a path when it matches the path itself or one of its parent
// directories, so "vendor" selects everything below vendor/. Exclude patterns
// without a separator additionally match any single path component, so
// "node_modules" also drops nested node_modules directories. Exclusion always
// wins over inclusion. With no include patterns every non-excluded path is selected.
type Matcher struct {
	include      *patternmatcher.PatternMatcher
	exclude      *patternmatcher.PatternMatcher
	excludeNames []string
}

// NewMatcher compiles include and exclude glob patterns. A leading "./" is ignored.
func NewMatcher(include, exclude []string) (*Matcher, error) {
	m := &Matcher{}

	inc, err := normalizePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	if len(inc) > 0 {
		if m.include, err = patternmatcher.New(inc); err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
	}

	exc, err := normalizePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	if len(exc) > 0 {
		if m.exclude, err = patternmatcher.New(exc); err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
	}
	for _, p := range exc {
		if !strings.Contains(p, "/") && !strings.HasPrefix(p, "!") {
			m.excludeNames = append(m.excludeNames, p)
		}
	}

	return m, nil
}

// Excluded reports whether rel, relative to the source root, is excluded.
func (m *Matcher) Excluded(rel string) bool {
	if m.exclude != nil {
		if ok, err := m.exclude.MatchesOrParentMatches(rel); err == nil && ok {
			return true
		}
	}
	return shouldExclude(rel, m.excludeNames)
}

// Included reports whether rel, relative to the source root, is staged.
func (m *Matcher) Included(rel string) bool {
	if m.Excluded(rel) {
		return false
	}
	if m.include == nil {
		return true
	}
	ok, err := m.include.MatchesOrParentMatches(rel)
	return err == nil && ok
}

// normalizePatterns trims, strips leading "./" and rejects malformed globs.
func normalizePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		for strings.HasPrefix(p, "./") {
			p = strings.TrimPrefix(p, "./")
		}
		if p == "" || p == "." {
			continue
		}
		if _, err := filepath.Match(strings.TrimPrefix(p, "!"), ""); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// shouldExclude checks if any component of path matches one of the name patterns
func shouldExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		for _, pattern := range patterns {
			// Check exact match
			if part == pattern {
				return true
			}
			// Check glob pattern
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}
