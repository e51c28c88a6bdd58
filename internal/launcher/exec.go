package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const killWaitDelay = 2 * time.Second

// ExecLauncher runs each suite as a local child process: Command followed by
// the suite path. The child inherits the parent environment plus the overlay.
type ExecLauncher struct {
	Command []string
	// Timeout kills a launch that runs longer; zero waits forever.
	Timeout time.Duration
}

func (l *ExecLauncher) Launch(ctx context.Context, target string, env map[string]string) (string, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, l.Command...), target)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), envSlice(env)...)

	// Grandchildren holding the pipes open must not outlive a kill forever.
	cmd.WaitDelay = killWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		launchErr := &LaunchError{Target: target, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			launchErr.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			launchErr.TimedOut = true
		}
		return "", launchErr
	}
	return stdout.String(), nil
}

func (l *ExecLauncher) String() string {
	return fmt.Sprintf("exec %v", l.Command)
}
