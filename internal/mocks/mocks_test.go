package mocks

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jmcdonald/wprelease/internal/adapters/billyfs"
	"github.com/jmcdonald/wprelease/internal/config"
	"github.com/jmcdonald/wprelease/internal/ports"
	"github.com/jmcdonald/wprelease/internal/release"
)

func TestMockFileSystem(t *testing.T) {
	mockFS := NewMockFileSystem(billyfs.NewMemory())

	// Test WriteFile and ReadFile pass through
	if err := mockFS.WriteFile("/test/file.txt", []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := mockFS.ReadFile("/test/file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, expected %q", string(content), "hello")
	}

	info, err := mockFS.Stat("/test/file.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, expected 5", info.Size())
	}

	// Test error injection
	mockFS.Errors["/test"] = errors.New("injected error")
	if err := mockFS.RemoveAll("/test"); err == nil || err.Error() != "injected error" {
		t.Errorf("Expected injected error, got: %v", err)
	}
	if _, err := mockFS.Stat("/test/file.txt"); err != nil {
		t.Errorf("file should survive failed RemoveAll: %v", err)
	}

	if len(mockFS.Calls) != 5 || mockFS.Calls[3] != "RemoveAll /test" {
		t.Errorf("Calls = %v", mockFS.Calls)
	}
}

func TestMockFileSystemWalk(t *testing.T) {
	mockFS := NewMockFileSystem(billyfs.NewMemory())
	_ = mockFS.WriteFile("/project/file1.txt", []byte("1"), 0644)
	_ = mockFS.WriteFile("/project/file2.txt", []byte("2"), 0644)

	var visited []string
	err := mockFS.Walk("/project", func(path string, info os.FileInfo, err error) error {
		if !info.IsDir() {
			visited = append(visited, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(visited) != 2 {
		t.Errorf("Walk visited %d files, expected 2", len(visited))
	}
}

func TestMockGitClient(t *testing.T) {
	git := NewMockGitClient()

	// Test GetHead for non-repo
	if head := git.GetHead("/not-a-repo"); head != "" {
		t.Errorf("GetHead should return empty for non-repo, got %q", head)
	}

	git.Repos["/my-repo"] = true
	git.Heads["/my-repo"] = "abc123def456"
	git.Branches["/my-repo"] = "main"

	if !git.IsRepo("/my-repo") {
		t.Error("IsRepo should return true for configured repo")
	}
	if head := git.GetHead("/my-repo"); head != "abc123def456" {
		t.Errorf("GetHead = %q, expected %q", head, "abc123def456")
	}
	if branch := git.Branch("/my-repo"); branch != "main" {
		t.Errorf("Branch = %q, expected %q", branch, "main")
	}
}

func TestMockCommandRunner(t *testing.T) {
	runner := NewMockCommandRunner()
	ctx := context.Background()

	res, err := runner.Run(ctx, ports.Command{Name: "zip", Args: []string{"-r", "-q", "package.zip", "test"}})
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("Run = %+v, %v; expected success", res, err)
	}

	runner.Results["zip"] = ports.CommandResult{ExitCode: 12, Output: "nothing to do"}
	if res, _ := runner.Run(ctx, ports.Command{Name: "zip"}); res.ExitCode != 12 {
		t.Errorf("ExitCode = %d, expected 12", res.ExitCode)
	}

	runner.Errors["zipr"] = errors.New("executable file not found")
	if _, err := runner.Run(ctx, ports.Command{Name: "zipr"}); err == nil {
		t.Error("expected start error for zipr")
	}

	if len(runner.Calls) != 3 {
		t.Errorf("Calls = %d, expected 3", len(runner.Calls))
	}

	runner.OnRun = func(ctx context.Context, cmd ports.Command) (ports.CommandResult, error) {
		return ports.CommandResult{Output: cmd.Dir}, nil
	}
	if res, _ := runner.Run(ctx, ports.Command{Name: "zipr", Dir: "/release"}); res.Output != "/release" {
		t.Errorf("OnRun not used, got %+v", res)
	}
}

func TestMockArchiveReader(t *testing.T) {
	reader := NewMockArchiveReader()

	if _, err := reader.List("/missing.zip"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	reader.ListResults["/package.zip"] = map[string]ports.FileInfo{
		"test/test.php": {Size: 100, CRC32: 12345},
	}
	files, err := reader.List("/package.zip")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("List returned %d files, expected 1", len(files))
	}

	reader.Errors["/package.zip"] = errors.New("zip: not a valid zip file")
	if _, err := reader.List("/package.zip"); err == nil {
		t.Error("expected injected error")
	}
	if len(reader.ListCalls) != 3 {
		t.Errorf("ListCalls = %d, expected 3", len(reader.ListCalls))
	}
}

func TestMockReleaseServiceRun(t *testing.T) {
	svc := NewMockReleaseService()
	cfg := config.DefaultConfig()
	rc := release.Context{Version: "1.0.0"}

	report, err := svc.Run(context.Background(), cfg, rc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Publish == nil || report.Publish.Package == nil {
		t.Error("expected publish result in report")
	}
	if got := len(svc.Calls); got != 3 {
		t.Errorf("Calls = %v, expected prepare, publish, success", svc.Calls)
	}

	svc = NewMockReleaseService()
	svc.Errors["publish"] = errors.New("EZIP: boom")
	if _, err := svc.Run(context.Background(), cfg, rc); err == nil {
		t.Fatal("expected publish error")
	}
	want := []string{"prepare", "publish", "fail"}
	for i, name := range want {
		if i >= len(svc.Calls) || svc.Calls[i] != name {
			t.Fatalf("Calls = %v, expected %v", svc.Calls, want)
		}
	}
}
