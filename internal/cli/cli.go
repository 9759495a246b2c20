// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/jmcdonald/wprelease/internal/adapters/execgit"
	"github.com/jmcdonald/wprelease/internal/artifact"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/metrics"
	"github.com/jmcdonald/wprelease/internal/pipeline"
	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/publish"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
	"github.com/jmcdonald/wprelease/internal/stage"
	"github.com/jmcdonald/wprelease/internal/tui"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load(path string) (*config.PluginConfig, error)
	Save(cfg *config.PluginConfig, path string) error
	DefaultConfig() *config.PluginConfig
}

// ReleaseService runs the release stages. pipeline.Pipeline implements it.
type ReleaseService interface {
	Prepare(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error)
	Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*publish.Result, error)
	Success(cfg *config.PluginConfig, rc release.Context) error
	Fail(cfg *config.PluginConfig, rc release.Context)
	Run(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*pipeline.Report, error)
	Verify(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error)
}

// UIRunner launches the interactive release view.
type UIRunner func(ctx context.Context, svc tui.Service, cfg *config.PluginConfig, rc release.Context) error

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	ReleaseSvc ReleaseService
	GitClient  ports.GitClient
	RunUI      UIRunner

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// options holds the parsed command flags.
type options struct {
	version     string
	lastVersion string
	channel     string
	configPath  string
	releasePath string
	metricsFile string
	slug        string
	verbose     bool
	force       bool
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load(path string) (*config.PluginConfig, error) {
	return config.Load(path)
}
func (d *defaultConfigService) Save(cfg *config.PluginConfig, path string) error {
	return cfg.Save(path)
}
func (d *defaultConfigService) DefaultConfig() *config.PluginConfig { return config.DefaultConfig() }

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) gitClient() ports.GitClient {
	if c.GitClient != nil {
		return c.GitClient
	}
	return execgit.New()
}

func (c *CLI) runUI() UIRunner {
	if c.RunUI != nil {
		return c.RunUI
	}
	return tui.Run
}

// releaseSvc returns the injected service, or a pipeline logging to c.Err
// and recording into rec when rec is non-nil.
func (c *CLI) releaseSvc(opts options, rec *metrics.PrometheusRecorder) ReleaseService {
	if c.ReleaseSvc != nil {
		return c.ReleaseSvc
	}
	pipeOpts := []pipeline.Option{pipeline.WithLogger(c.logger(opts))}
	if rec != nil {
		pipeOpts = append(pipeOpts, pipeline.WithMetrics(rec))
	}
	return pipeline.NewDefault(pipeOpts...)
}

func (c *CLI) logger(opts options) *slog.Logger {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.Err, &slog.HandlerOptions{Level: level}))
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		fmt.Fprintln(c.Out, "No command specified. Use 'wprelease help' for usage.")
		c.Exit(1)
		return
	}

	switch c.Args[1] {
	case "prepare", "publish", "success", "fail", "run", "verify", "ui":
		c.RunRelease(c.Args[1])
	case "init":
		c.InitConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "wprelease v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `wprelease - WordPress plugin release packager

Usage:
  wprelease prepare --version=X.Y.Z      Stage files and rewrite version tokens
  wprelease publish [--version=X.Y.Z]    Build package.zip (and assets.zip) from the staged tree
  wprelease success                      Remove staged files, keep archives and VERSION
  wprelease fail                         Remove leftover working directories
  wprelease run --version=X.Y.Z          prepare, publish and success in one go
  wprelease verify --version=X.Y.Z       Dry run: stage into memory and check version tokens
  wprelease ui --version=X.Y.Z           Run the release interactively
  wprelease init [--slug=NAME] [--force] Create default config file
  wprelease version, -v                  Show version
  wprelease help, -h                     Show this help

Flags:
  --config=PATH         Config file (default ./.wprelease.yaml)
  --last-version=X.Y.Z  Previously released version, must be lower than --version
  --channel=NAME        Release channel recorded in logs
  --release-path=PATH   Override the configured release path
  --metrics-file=PATH   Write Prometheus metrics to PATH after the run
  --verbose             Debug logging on stderr

Environment:
  ZIP_COMMAND           Archiver binary used by publish (default zip)`)
}

func (c *CLI) parseFlags(args []string) (options, error) {
	opts := options{configPath: config.ConfigPath()}
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--version="):
			opts.version = strings.TrimPrefix(arg, "--version=")
		case strings.HasPrefix(arg, "--last-version="):
			opts.lastVersion = strings.TrimPrefix(arg, "--last-version=")
		case strings.HasPrefix(arg, "--channel="):
			opts.channel = strings.TrimPrefix(arg, "--channel=")
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--release-path="):
			opts.releasePath = strings.TrimPrefix(arg, "--release-path=")
		case strings.HasPrefix(arg, "--metrics-file="):
			opts.metricsFile = strings.TrimPrefix(arg, "--metrics-file=")
		case strings.HasPrefix(arg, "--slug="):
			opts.slug = strings.TrimPrefix(arg, "--slug=")
		case arg == "--verbose":
			opts.verbose = true
		case arg == "--force":
			opts.force = true
		default:
			return opts, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return opts, nil
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	opts, err := c.parseFlags(c.Args[2:])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	path := config.ExpandPath(opts.configPath)
	if _, err := os.Stat(path); err == nil && !opts.force {
		fmt.Fprintf(c.Err, "Config %s already exists, use --force to overwrite\n", path)
		c.Exit(1)
		return
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	svc := c.configSvc()
	cfg := svc.DefaultConfig()
	cfg.Slug = opts.slug
	if cfg.Slug == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Slug = filepath.Base(wd)
		}
	}

	if err := svc.Save(cfg, path); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s (slug %s)\n", path, c.cyan(cfg.Slug))
}

// requiresVersion lists commands that cannot run without --version.
var requiresVersion = map[string]bool{
	"prepare": true,
	"run":     true,
	"verify":  true,
	"ui":      true,
}

// RunRelease runs one release command.
func (c *CLI) RunRelease(command string) {
	opts, err := c.parseFlags(c.Args[2:])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if requiresVersion[command] && opts.version == "" {
		fmt.Fprintf(c.Out, "Usage: wprelease %s --version=X.Y.Z\n", command)
		c.Exit(1)
		return
	}

	cfg, err := c.configSvc().Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}
	if opts.releasePath != "" {
		cfg.ReleasePath = opts.releasePath
	}
	rc := c.releaseContext(cfg, opts)

	var rec *metrics.PrometheusRecorder
	if opts.metricsFile != "" {
		rec = metrics.NewPrometheusRecorder()
	}
	svc := c.releaseSvc(opts, rec)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = c.dispatch(ctx, command, svc, cfg, rc)

	if rec != nil {
		if werr := rec.WriteTextfile(opts.metricsFile); werr != nil {
			fmt.Fprintf(c.Err, "%s writing metrics: %v\n", c.yellow("!"), werr)
		}
	}

	if err != nil {
		c.printError(err)
		c.Exit(1)
	}
}

func (c *CLI) dispatch(ctx context.Context, command string, svc ReleaseService, cfg *config.PluginConfig, rc release.Context) error {
	switch command {
	case "prepare":
		res, err := svc.Prepare(cfg, rc)
		if err != nil {
			return err
		}
		c.printStaged(res)

	case "publish":
		res, err := svc.Publish(ctx, cfg, rc)
		if err != nil {
			return err
		}
		c.printArtifacts(res)

	case "success":
		if err := svc.Success(cfg, rc); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s Cleaned up %s\n", c.green("*"), cfg.ReleaseDir())

	case "fail":
		svc.Fail(cfg, rc)
		fmt.Fprintf(c.Out, "%s Removed working directories in %s\n", c.yellow("-"), cfg.ReleaseDir())

	case "run":
		label := rc.Version
		if rc.IsPrerelease() {
			label += " " + c.yellow("(prerelease)")
		}
		fmt.Fprintf(c.Out, "%s Releasing %s %s\n", c.cyan("=>"), cfg.Slug, label)
		report, err := svc.Run(ctx, cfg, rc)
		if report != nil && report.Stage != nil {
			c.printStaged(report.Stage)
		}
		if err != nil {
			return err
		}
		c.printArtifacts(report.Publish)
		fmt.Fprintf(c.Out, "\nDone: %s %s packaged in %s\n", c.green(cfg.Slug), rc.Version, cfg.ReleaseDir())

	case "verify":
		res, err := svc.Verify(cfg, rc)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%s Dry run OK: %d files would be staged, version %s written to %s\n",
			c.green("*"), len(res.Files), rc.Version, strings.Join(res.Rewritten, ", "))
		c.printDiffs(res.Diffs)

	case "ui":
		return c.runUI()(ctx, svc, cfg, rc)
	}
	return nil
}

// releaseContext builds the release context from flags and the source repo.
func (c *CLI) releaseContext(cfg *config.PluginConfig, opts options) release.Context {
	rc := release.Context{
		Version:     opts.version,
		LastVersion: opts.lastVersion,
		Channel:     opts.channel,
	}
	git := c.gitClient()
	src := cfg.SourceDir()
	if git.IsRepo(src) {
		rc.Commit = git.GetHead(src)
		rc.Branch = git.Branch(src)
	}
	return rc
}

func (c *CLI) printStaged(res *stage.Result) {
	fmt.Fprintf(c.Out, "%s Staged %d files to %s\n", c.green("*"), len(res.Files), res.StagedDir)
	fmt.Fprintf(c.Out, "  %s %s\n", c.gray("rewritten:"), strings.Join(res.Rewritten, ", "))
	if res.AssetsDir != "" {
		fmt.Fprintf(c.Out, "  %s %d files in %s\n", c.gray("assets:"), res.AssetFiles, res.AssetsDir)
	}
	if res.VersionFile != "" {
		fmt.Fprintf(c.Out, "  %s %s\n", c.gray("version:"), res.VersionFile)
	}
}

func (c *CLI) printDiffs(diffs []stage.FileDiff) {
	for _, d := range diffs {
		fmt.Fprintf(c.Out, "  %s\n", c.cyan(d.Path))
		for _, l := range d.Lines {
			paint := c.green
			if l.Type == '-' {
				paint = c.red
			}
			fmt.Fprintf(c.Out, "    %s %s\n", c.gray(fmt.Sprintf("%4d", l.LineNum)), paint(string(l.Type)+" "+l.Content))
		}
	}
}

func (c *CLI) printArtifacts(res *publish.Result) {
	if res == nil {
		return
	}
	for _, a := range res.Artifacts() {
		fmt.Fprintf(c.Out, "  %s %-12s %s %d files %s\n",
			c.green("*"),
			a.Name,
			c.yellow(artifact.FormatSize(a.Size)),
			a.Entries,
			c.gray("sha256:"+a.ShortSum()))
	}
}

// printError prints err with its release code and details when it has them.
func (c *CLI) printError(err error) {
	var relErr *releaseerr.Error
	if !errors.As(err, &relErr) {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("x"), err)
		return
	}
	fmt.Fprintf(c.Err, "%s [%s] %s\n", c.red("x"), relErr.Code, relErr.Message)
	for _, k := range []string{"path", "command", "exit_code", "output"} {
		if v, ok := relErr.Details[k]; ok && v != "" {
			fmt.Fprintf(c.Err, "  %s %s\n", c.gray(k+":"), v)
		}
	}
	if relErr.Err != nil {
		fmt.Fprintf(c.Err, "  %s %v\n", c.gray("cause:"), relErr.Err)
	}
}
