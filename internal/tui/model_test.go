package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/mocks"
	"github.com/jmcdonald/wprelease/internal/release"
	"github.com/jmcdonald/wprelease/internal/releaseerr"
)

func testConfig() *config.PluginConfig {
	cfg := config.DefaultConfig()
	cfg.Slug = "dist-test"
	cfg.Path = "/test/source"
	cfg.ReleasePath = "/test/release"
	return cfg
}

// drive feeds msg to the model and keeps executing the returned commands
// until the model settles. Spinner ticks are dropped.
func drive(m *Model, msg tea.Msg) (quit bool) {
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := next.(tea.QuitMsg); ok {
			quit = true
			continue
		}
		_, cmd := m.Update(next)
		queue = append(queue, collect(cmd)...)
	}
	return quit
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case spinner.TickMsg:
		return nil
	case nil:
		return nil
	default:
		return []tea.Msg{msg}
	}
}

var enter = tea.KeyMsg{Type: tea.KeyEnter}

func TestNewModel(t *testing.T) {
	m := NewModel(context.Background(), mocks.NewMockReleaseService(), testConfig(), release.Context{Version: "1.2.3"})

	if m.phase != ReadyPhase {
		t.Errorf("phase = %v, expected ReadyPhase", m.phase)
	}
	if len(m.steps) != 3 {
		t.Fatalf("steps = %d, expected 3", len(m.steps))
	}
	for _, s := range m.steps {
		if s.Status != Pending {
			t.Errorf("step %s status = %v, expected Pending", s.Name, s.Status)
		}
	}
	if m.Init() != nil {
		t.Error("Init should not start the release")
	}

	view := m.View()
	for _, want := range []string{"wprelease", "dist-test (plugin)", "1.2.3", "[enter] start release"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRunSuccess(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.2.3", LastVersion: "1.2.2"})

	drive(m, enter)

	if m.phase != DonePhase {
		t.Fatalf("phase = %v, expected DonePhase (err %v)", m.phase, m.err)
	}
	if got := strings.Join(svc.Calls, ","); got != "prepare,publish,success" {
		t.Errorf("calls = %s", got)
	}
	if m.ctx.Err() == nil {
		t.Error("context should be released once the run is done")
	}
	for _, s := range m.steps {
		if s.Status != Done {
			t.Errorf("step %s status = %v, expected Done", s.Name, s.Status)
		}
	}

	view := m.View()
	for _, want := range []string{"Released dist-test 1.2.3", "package.zip", "1.2.2 → 1.2.3", "1 files staged"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRunStageFailure(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	svc.Errors["publish"] = releaseerr.New(releaseerr.CodeArchive, "archiver failed creating package.zip")
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.2.3"})

	drive(m, enter)

	if m.phase != FailedPhase {
		t.Fatalf("phase = %v, expected FailedPhase", m.phase)
	}
	if got := strings.Join(svc.Calls, ","); got != "prepare,publish,fail" {
		t.Errorf("calls = %s", got)
	}
	if m.steps[1].Status != Failed || m.steps[1].Detail != "EZIP" {
		t.Errorf("publish step = %+v", m.steps[1])
	}
	if m.steps[2].Status != Skipped {
		t.Errorf("success step status = %v, expected Skipped", m.steps[2].Status)
	}
	if !releaseerr.Is(m.Err(), releaseerr.CodeArchive) {
		t.Errorf("Err() = %v", m.Err())
	}
	if !strings.Contains(m.View(), "EZIP") {
		t.Error("view should show the error code")
	}
}

func TestStartOnlyOnce(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.0.0"})

	drive(m, enter)
	drive(m, enter)

	if len(svc.Calls) != 3 {
		t.Errorf("calls = %v, release should only run once", svc.Calls)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), mocks.NewMockReleaseService(), testConfig(), release.Context{Version: "1.0.0"})

	if quit := drive(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); !quit {
		t.Error("q should quit when idle")
	}
	if !m.quitting {
		t.Error("quitting should be set")
	}
	if m.View() != "" {
		t.Error("view should be empty after quitting")
	}
	if m.ctx.Err() == nil {
		t.Error("context should be cancelled on quit")
	}
}

func TestQuitWhileRunning(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.0.0"})

	// Start, but hold the prepare result back.
	_, cmd := m.Update(enter)
	if m.phase != RunningPhase {
		t.Fatalf("phase = %v, expected RunningPhase", m.phase)
	}

	if _, quitCmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); quitCmd != nil {
		t.Error("quit while running should wait for the stage")
	}

	var quit bool
	for _, msg := range collect(cmd) {
		quit = drive(m, msg) || quit
	}

	if !quit {
		t.Error("program should exit once cleanup finished")
	}
	if got := strings.Join(svc.Calls, ","); got != "prepare,fail" {
		t.Errorf("calls = %s, expected prepare then fail", got)
	}
	if !errors.Is(m.Err(), context.Canceled) {
		t.Errorf("Err() = %v, expected cancellation", m.Err())
	}
}

func TestToggleFiles(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	svc.StageResult.Files = []string{"dist-test.php", "vendor/autoload.php"}
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.0.0"})
	drive(m, enter)

	if strings.Contains(m.View(), "vendor/autoload.php") {
		t.Error("files should be hidden by default")
	}
	drive(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'f'}})
	if !strings.Contains(m.View(), "vendor/autoload.php") {
		t.Error("files should be listed after pressing f")
	}
}

func TestWindowSize(t *testing.T) {
	m := NewModel(context.Background(), mocks.NewMockReleaseService(), testConfig(), release.Context{Version: "1.0.0"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if m.width != 100 || m.height != 40 {
		t.Errorf("size = %dx%d, expected 100x40", m.width, m.height)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"/very/long/path/to/release", 10, "…o/release"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestWithTeatest(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "2.0.0"})

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))
	tm.Send(enter)
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "Released")
	}, teatest.WithDuration(2*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	final := tm.FinalModel(t).(*Model)
	if final.phase != DonePhase {
		t.Errorf("phase = %v, expected DonePhase", final.phase)
	}
}

func TestToggleDiff(t *testing.T) {
	svc := mocks.NewMockReleaseService()
	m := NewModel(context.Background(), svc, testConfig(), release.Context{Version: "1.0.0"})
	drive(m, enter)

	if strings.Contains(m.View(), "Version: 1.0.0") {
		t.Error("diff should be hidden by default")
	}
	drive(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	view := m.View()
	for _, want := range []string{"test.php", "-  * Version: 0.0.0", "+  * Version: 1.0.0"} {
		if !strings.Contains(view, want) {
			t.Errorf("diff view missing %q:\n%s", want, view)
		}
	}
}

func TestParentContextCancelsPublish(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	svc := mocks.NewMockReleaseService()
	m := NewModel(parent, svc, testConfig(), release.Context{Version: "1.0.0"})

	cancel()

	if m.ctx.Err() == nil {
		t.Fatal("cancelling the parent should cancel the model context")
	}
	drive(m, enter)
	if len(svc.Contexts) == 0 {
		t.Fatal("stages should have run")
	}
	if svc.PublishContext == nil || svc.PublishContext.Err() == nil {
		t.Error("publish should receive the cancelled context")
	}
}
