package launcher_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalnine/packbench/internal/launcher"
)

func newDockerLauncher(t *testing.T, timeout time.Duration) *launcher.DockerLauncher {
	t.Helper()
	if os.Getenv("PACKBENCH_DOCKER_TESTS") == "" {
		t.Skip("set PACKBENCH_DOCKER_TESTS=1 to run Docker tests")
	}
	l, err := launcher.NewDockerLauncher(launcher.DockerOpts{
		Image:   "alpine:latest",
		Command: []string{"sh"},
		Basedir: t.TempDir(),
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewDockerLauncher: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestDockerLauncher(t *testing.T) {
	l := newDockerLauncher(t, 60*time.Second)
	script := filepath.Join(t.TempDir(), "suite.sh")
	os.WriteFile(script, []byte(`echo "{\"matches\":1,\"time\":2,\"memory\":3,\"cwd\":\"$BENCHMARK_CWD\"}"; echo noise >&2`), 0o644)

	out, err := l.Launch(context.Background(), script, launcher.WorkerEnv("/host/path", 0, nil))
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	want := "{\"matches\":1,\"time\":2,\"memory\":3,\"cwd\":\"/bench\"}\n"
	if out != want {
		t.Errorf("stdout: got %q, want %q", out, want)
	}
}

func TestDockerLauncherCrash(t *testing.T) {
	l := newDockerLauncher(t, 30*time.Second)
	script := filepath.Join(t.TempDir(), "suite.sh")
	os.WriteFile(script, []byte("exit 1"), 0o644)

	_, err := l.Launch(context.Background(), script, nil)
	var launchErr *launcher.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
	if launchErr.ExitCode != 1 {
		t.Errorf("exit code: got %d, want 1", launchErr.ExitCode)
	}
}

func TestDockerLauncherTimeout(t *testing.T) {
	l := newDockerLauncher(t, 2*time.Second)
	script := filepath.Join(t.TempDir(), "suite.sh")
	os.WriteFile(script, []byte("sleep 300"), 0o644)

	_, err := l.Launch(context.Background(), script, nil)
	var launchErr *launcher.LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected LaunchError, got %v", err)
	}
	if !launchErr.TimedOut {
		t.Error("expected timeout")
	}
	if launchErr.ExitCode != 124 {
		t.Errorf("exit code: got %d, want 124", launchErr.ExitCode)
	}
}
