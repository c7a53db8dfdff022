package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pathogenwatch/amrpipe/internal/domain"
)

func TestRun_CapturesStdout(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed {
		t.Error("expected success")
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("Stdout = %q, want hello", res.Stdout)
	}
}

func TestRun_NonzeroExitIsNotAnError(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo oops >&2; exit 3"}})
	if err != nil {
		t.Fatalf("nonzero exit should not return an error, got %v", err)
	}
	if !res.Failed {
		t.Error("expected Failed to be set")
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("Stderr = %q, want it to contain oops", res.Stderr)
	}
}

func TestRun_MissingBinaryIsLaunchError(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	var launchErr *domain.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("want *LaunchError, got %v", err)
	}
	if !strings.Contains(launchErr.Error(), "definitely-not-a-real-binary-xyz") {
		t.Errorf("launch error should name the command, got %q", launchErr.Error())
	}
}

func TestRun_AppendsLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "tool.log")

	r := New()
	for i := 0; i < 2; i++ {
		if _, err := r.Run(context.Background(), Command{
			Name:    "sh",
			Args:    []string{"-c", "echo out; echo err >&2"},
			LogPath: logPath,
		}); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "out\n"); got != 2 {
		t.Errorf("log should hold one block per invocation, found %d stdout blocks", got)
	}
	if !strings.Contains(string(data), "err\n") {
		t.Error("log should contain stderr")
	}
}

func TestRun_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	r := New()
	res, err := r.Run(context.Background(), Command{Name: "pwd", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
	want, _ := filepath.EvalSymlinks(dir)
	if got != want {
		t.Errorf("pwd = %q, want %q", got, want)
	}
}
