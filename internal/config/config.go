// Package config loads and validates the plugin configuration that drives a release.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

// EnvZipCommand overrides the archiver binary for every release.
const EnvZipCommand = "ZIP_COMMAND"

// DefaultConfigFile is the config file looked up in the working directory.
const DefaultConfigFile = ".wprelease.yaml"

// Package types.
const (
	TypePlugin = "plugin"
	TypeTheme  = "theme"
)

// Layout names inside the release path.
const (
	PackageArchive = "package.zip"
	AssetsArchive  = "assets.zip"
	AssetsDirName  = "assets"
	VersionFile    = "VERSION"

	// wordpressOrgDir holds the readme and directory assets in the source tree.
	wordpressOrgDir = ".wordpress-org"
	readmeFile      = "readme.txt"
)

// PluginConfig identifies the plugin or theme being released and controls which
// optional artifacts are produced. It is read-only for the duration of a run.
type PluginConfig struct {
	Type               string   `yaml:"type"`
	Slug               string   `yaml:"slug"`
	Path               string   `yaml:"path"`
	WorkDir            string   `yaml:"work_dir"`
	ReleasePath        string   `yaml:"release_path,omitempty"`
	WithAssets         bool     `yaml:"with_assets"`
	WithReadme         bool     `yaml:"with_readme"`
	WithVersionFile    bool     `yaml:"with_version_file"`
	Include            []string `yaml:"include"`
	Exclude            []string `yaml:"exclude"`
	VersionPlaceholder string   `yaml:"version_placeholder"`
	VersionFiles       []string `yaml:"version_files,omitempty"`
	ZipCommand         string   `yaml:"zip_command,omitempty"`
}

// DefaultConfig returns a config with the conventional defaults. Slug and Path
// are left empty and must be provided.
func DefaultConfig() *PluginConfig {
	return &PluginConfig{
		Type:            TypePlugin,
		Path:            ".",
		WorkDir:         "publish",
		WithReadme:      true,
		WithVersionFile: true,
		Exclude: []string{
			"node_modules",
			".git",
			".github",
			".wordpress-org",
			".DS_Store",
			".idea",
			".vscode",
			"tests",
			"phpunit.xml*",
			"composer.lock",
			"package-lock.json",
		},
		VersionPlaceholder: "0.0.0",
		ZipCommand:         "zip",
	}
}

// ConfigPath returns the default config location in the working directory.
func ConfigPath() string {
	return DefaultConfigFile
}

// Load reads the YAML config at path on top of DefaultConfig.
// A missing file is an error: a release needs at least a slug.
func Load(path string) (*PluginConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config as YAML to path.
func (c *PluginConfig) Save(path string) error {
	path = ExpandPath(path)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports configuration problems as EINVALIDCONFIG errors.
func (c *PluginConfig) Validate() error {
	switch {
	case c.Type != TypePlugin && c.Type != TypeTheme:
		return releaseerr.New(releaseerr.CodeInvalidConfig, "type must be %q or %q, got %q", TypePlugin, TypeTheme, c.Type)
	case c.Slug == "":
		return releaseerr.New(releaseerr.CodeInvalidConfig, "slug is required")
	case strings.ContainsAny(c.Slug, `/\`) || c.Slug == "." || c.Slug == "..":
		return releaseerr.New(releaseerr.CodeInvalidConfig, "slug %q must be a single path element", c.Slug)
	case c.Slug == AssetsDirName:
		return releaseerr.New(releaseerr.CodeInvalidConfig, "slug %q collides with the assets directory", c.Slug)
	case c.Path == "":
		return releaseerr.New(releaseerr.CodeInvalidConfig, "path is required")
	case c.WorkDir == "" || strings.ContainsAny(c.WorkDir, `/\`):
		return releaseerr.New(releaseerr.CodeInvalidConfig, "work_dir %q must be a non-empty name", c.WorkDir)
	case c.VersionPlaceholder == "":
		return releaseerr.New(releaseerr.CodeInvalidConfig, "version_placeholder is required")
	}
	return nil
}

// SourceDir returns the expanded, absolute source path.
func (c *PluginConfig) SourceDir() string {
	p := ExpandPath(c.Path)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ReleaseDir returns the directory all artifacts are written to. Defaults to
// <tmp>/wp-release-<slug> when ReleasePath is not set.
func (c *PluginConfig) ReleaseDir() string {
	if c.ReleasePath == "" {
		return filepath.Join(os.TempDir(), "wp-release-"+c.Slug)
	}
	p := ExpandPath(c.ReleasePath)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// MainFile returns the file holding the package header, relative to the source root.
func (c *PluginConfig) MainFile() string {
	if c.Type == TypeTheme {
		return "style.css"
	}
	return c.Slug + ".php"
}

// ReadmeSource returns the readme path in the source tree.
func (c *PluginConfig) ReadmeSource() string {
	return filepath.Join(c.SourceDir(), wordpressOrgDir, readmeFile)
}

// AssetsSource returns the directory-assets path in the source tree.
func (c *PluginConfig) AssetsSource() string {
	return filepath.Join(c.SourceDir(), wordpressOrgDir, AssetsDirName)
}

// StagedDir returns <releasePath>/<slug>.
func (c *PluginConfig) StagedDir() string {
	return filepath.Join(c.ReleaseDir(), c.Slug)
}

// AssetsDir returns <releasePath>/assets.
func (c *PluginConfig) AssetsDir() string {
	return filepath.Join(c.ReleaseDir(), AssetsDirName)
}

// PackagePath returns <releasePath>/package.zip.
func (c *PluginConfig) PackagePath() string {
	return filepath.Join(c.ReleaseDir(), PackageArchive)
}

// AssetsArchivePath returns <releasePath>/assets.zip.
func (c *PluginConfig) AssetsArchivePath() string {
	return filepath.Join(c.ReleaseDir(), AssetsArchive)
}

// VersionFilePath returns <releasePath>/VERSION.
func (c *PluginConfig) VersionFilePath() string {
	return filepath.Join(c.ReleaseDir(), VersionFile)
}

// WorkDirPrefix returns the name prefix of per-run working directories.
func (c *PluginConfig) WorkDirPrefix() string {
	return "." + c.WorkDir + "-"
}

// ArchiverCommand resolves the archiver binary: ZIP_COMMAND, then ZipCommand, then "zip".
func (c *PluginConfig) ArchiverCommand() string {
	if cmd := strings.TrimSpace(os.Getenv(EnvZipCommand)); cmd != "" {
		return cmd
	}
	if c.ZipCommand != "" {
		return c.ZipCommand
	}
	return "zip"
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path // Return unexpanded if home unavailable
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
