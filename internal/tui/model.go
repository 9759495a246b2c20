// Package tui shows an interactive view of a release run: the release being
// packaged, the progress of each stage and the archives it produced.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmcdonald/wprelease/internal/artifact"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/publish"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
	"github.com/jmcdonald/wprelease/internal/stage"
)

// Service runs the individual release stages.
type Service interface {
	Prepare(cfg *config.PluginConfig, rc release.Context) (*stage.Result, error)
	Publish(ctx context.Context, cfg *config.PluginConfig, rc release.Context) (*publish.Result, error)
	Success(cfg *config.PluginConfig, rc release.Context) error
	Fail(cfg *config.PluginConfig, rc release.Context)
}

// Status is the state of one stage in the view.
type Status int

const (
	Pending Status = iota
	Running
	Done
	Failed
	Skipped
)

// Phase is the state of the whole run.
type Phase int

const (
	ReadyPhase Phase = iota
	RunningPhase
	CleaningPhase // running fail after a stage error
	DonePhase
	FailedPhase
)

// StepItem is a stage row in the progress list.
type StepItem struct {
	Name     string
	Status   Status
	Detail   string
	Duration time.Duration
}

// Model is the main TUI model
type Model struct {
	svc Service
	cfg *config.PluginConfig
	rc  release.Context

	ctx    context.Context
	cancel context.CancelFunc

	phase    Phase
	steps    []StepItem
	current  int
	spinner  spinner.Model
	width    int
	height   int
	quitting bool

	stageResult   *stage.Result
	publishResult *publish.Result
	err           error
	showFiles     bool
	showDiff      bool
}

// Key bindings
type keyMap struct {
	Start key.Binding
	Files key.Binding
	Diff  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Start: key.NewBinding(
		key.WithKeys("enter", "r"),
		key.WithHelp("enter", "start release"),
	),
	Files: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "staged files"),
	),
	Diff: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "version diff"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// stepDoneMsg reports the outcome of one stage.
type stepDoneMsg struct {
	index    int
	err      error
	duration time.Duration
	stage    *stage.Result
	publish  *publish.Result
}

// failDoneMsg reports that cleanup after a failure finished.
type failDoneMsg struct{}

// NewModel creates a model that runs the release described by cfg and rc.
// Cancelling parent cancels a running publish.
func NewModel(parent context.Context, svc Service, cfg *config.PluginConfig, rc release.Context) *Model {
	ctx, cancel := context.WithCancel(parent)
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return &Model{
		svc:     svc,
		cfg:     cfg,
		rc:      rc,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		steps: []StepItem{
			{Name: "prepare"},
			{Name: "publish"},
			{Name: "success"},
		},
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.phase != RunningPhase && m.phase != CleaningPhase {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stepDoneMsg:
		return m, m.handleStepDone(msg)

	case failDoneMsg:
		m.phase = FailedPhase
		m.cancel()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.phase == RunningPhase || m.phase == CleaningPhase {
				// Let the running stage observe cancellation; fail
				// cleanup runs before the program exits.
				m.cancel()
				m.quitting = true
				return m, nil
			}
			m.quitting = true
			m.cancel()
			return m, tea.Quit

		case key.Matches(msg, keys.Start):
			if m.phase != ReadyPhase {
				return m, nil
			}
			m.phase = RunningPhase
			return m, tea.Batch(m.spinner.Tick, m.runStep(0))

		case key.Matches(msg, keys.Files):
			m.showFiles = !m.showFiles

		case key.Matches(msg, keys.Diff):
			m.showDiff = !m.showDiff
		}
	}

	return m, nil
}

func (m *Model) handleStepDone(msg stepDoneMsg) tea.Cmd {
	step := &m.steps[msg.index]
	step.Duration = msg.duration

	if msg.err != nil {
		step.Status = Failed
		step.Detail = string(releaseerr.CodeOf(msg.err))
		m.err = msg.err
		for i := msg.index + 1; i < len(m.steps); i++ {
			m.steps[i].Status = Skipped
		}
		m.phase = CleaningPhase
		return m.runFail()
	}

	step.Status = Done
	switch {
	case msg.stage != nil:
		m.stageResult = msg.stage
		step.Detail = fmt.Sprintf("%d files staged", len(msg.stage.Files))
	case msg.publish != nil:
		m.publishResult = msg.publish
		step.Detail = fmt.Sprintf("%d archive(s)", len(msg.publish.Artifacts()))
	default:
		step.Detail = "cleaned up"
	}

	next := msg.index + 1
	if m.quitting && next < len(m.steps) {
		return m.handleStepDone(stepDoneMsg{index: next, err: releaseerr.Wrap(context.Canceled, releaseerr.CodeArchive, "release cancelled")})
	}
	if next >= len(m.steps) {
		m.phase = DonePhase
		m.cancel()
		if m.quitting {
			return tea.Quit
		}
		return nil
	}
	return m.runStep(next)
}

// runStep marks step i running and returns the command that executes it.
func (m *Model) runStep(i int) tea.Cmd {
	m.current = i
	m.steps[i].Status = Running
	svc, cfg, rc, ctx := m.svc, m.cfg, m.rc, m.ctx

	return func() tea.Msg {
		start := time.Now()
		msg := stepDoneMsg{index: i}
		switch i {
		case 0:
			msg.stage, msg.err = svc.Prepare(cfg, rc)
		case 1:
			msg.publish, msg.err = svc.Publish(ctx, cfg, rc)
		case 2:
			msg.err = svc.Success(cfg, rc)
		}
		msg.duration = time.Since(start)
		return msg
	}
}

func (m *Model) runFail() tea.Cmd {
	svc, cfg, rc := m.svc, m.cfg, m.rc
	return func() tea.Msg {
		svc.Fail(cfg, rc)
		return failDoneMsg{}
	}
}

// Err returns the stage error of a failed run.
func (m *Model) Err() error {
	return m.err
}

// View renders the model.
func (m *Model) View() string {
	if m.quitting && (m.phase == ReadyPhase || m.phase == DonePhase || m.phase == FailedPhase) {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(" 📦 wprelease "))
	b.WriteString("\n\n")

	m.renderSummary(&b)
	b.WriteString("\n")
	m.renderSteps(&b)

	if m.publishResult != nil {
		b.WriteString("\n")
		m.renderArtifacts(&b)
	}
	if m.showFiles && m.stageResult != nil {
		b.WriteString("\n")
		m.renderFiles(&b)
	}
	if m.showDiff && m.stageResult != nil {
		b.WriteString("\n")
		m.renderDiff(&b)
	}

	b.WriteString("\n")
	switch m.phase {
	case DonePhase:
		b.WriteString(successBadge.Render(fmt.Sprintf("✓ Released %s %s", m.cfg.Slug, m.rc.Version)))
	case FailedPhase:
		b.WriteString(errorBadge.Render(fmt.Sprintf("✗ %v", m.err)))
	case CleaningPhase:
		b.WriteString(runningStyle.Render("Cleaning up working directories..."))
	}
	b.WriteString("\n")

	b.WriteString(helpStyle.Render(m.helpLine()))
	return appStyle.Render(b.String())
}

func (m *Model) renderSummary(b *strings.Builder) {
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(normalStyle.Render(value))
		b.WriteString("\n")
	}

	row("Slug", fmt.Sprintf("%s (%s)", m.cfg.Slug, m.cfg.Type))
	version := m.rc.Version
	if m.rc.LastVersion != "" {
		version = m.rc.LastVersion + " → " + version
	}
	row("Version", version)
	if m.rc.Commit != "" {
		ref := m.rc.ShortCommit()
		if m.rc.Branch != "" {
			ref = m.rc.Branch + "@" + ref
		}
		row("Commit", ref)
	}
	row("Source", truncate(m.cfg.SourceDir(), 60))
	row("Output", truncate(m.cfg.ReleaseDir(), 60))
}

func (m *Model) renderSteps(b *strings.Builder) {
	for _, s := range m.steps {
		var icon, line string
		switch s.Status {
		case Pending:
			icon = dimStyle.Render("○")
			line = dimStyle.Render(s.Name)
		case Running:
			icon = m.spinner.View()
			line = runningStyle.Render(s.Name)
		case Done:
			icon = successBadge.Render("✓")
			line = normalStyle.Render(fmt.Sprintf("%-8s %s", s.Name, dimStyle.Render(s.Detail+" "+formatDuration(s.Duration))))
		case Failed:
			icon = errorBadge.Render("✗")
			line = errorBadge.Render(fmt.Sprintf("%-8s %s", s.Name, s.Detail))
		case Skipped:
			icon = dimStyle.Render("-")
			line = dimStyle.Render(s.Name + " (skipped)")
		}
		b.WriteString(" " + icon + " " + line + "\n")
	}
}

func (m *Model) renderArtifacts(b *strings.Builder) {
	header := fmt.Sprintf("  %-14s %10s %8s %s", "ARCHIVE", "SIZE", "FILES", "SHA256")
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 56)))
	b.WriteString("\n")
	for _, a := range m.publishResult.Artifacts() {
		b.WriteString(normalStyle.Render(fmt.Sprintf("  %-14s %10s %8d %s",
			a.Name, artifact.FormatSize(a.Size), a.Entries, a.ShortSum())))
		b.WriteString("\n")
	}
}

func (m *Model) renderFiles(b *strings.Builder) {
	visible := m.height - 20
	if visible < 5 {
		visible = 5
	}
	files := m.stageResult.Files
	for i, f := range files {
		if i == visible {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  … %d more", len(files)-visible)))
			b.WriteString("\n")
			break
		}
		b.WriteString(dimStyle.Render("  " + f))
		b.WriteString("\n")
	}
}

func (m *Model) renderDiff(b *strings.Builder) {
	if len(m.stageResult.Diffs) == 0 {
		b.WriteString(dimStyle.Render("  no version changes"))
		b.WriteString("\n")
		return
	}
	for _, d := range m.stageResult.Diffs {
		b.WriteString(labelStyle.Render(d.Path))
		b.WriteString("\n")
		for _, l := range d.Lines {
			style := addedStyle
			if l.Type == '-' {
				style = deletedStyle
			}
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %4d ", l.LineNum)))
			b.WriteString(style.Render(string(l.Type) + " " + l.Content))
			b.WriteString("\n")
		}
	}
}

func (m *Model) helpLine() string {
	switch m.phase {
	case ReadyPhase:
		return "[enter] start release  [q] quit"
	case RunningPhase, CleaningPhase:
		return "[f] files  [d] diff  [q] cancel"
	default:
		return "[f] files  [d] diff  [q] quit"
	}
}

// Run starts the interactive release view and returns the stage error, if any.
func Run(ctx context.Context, svc Service, cfg *config.PluginConfig, rc release.Context) error {
	m := NewModel(ctx, svc, cfg, rc)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return m.Err()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "…" + s[len(s)-max+1:]
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
