package launcher

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	containerBasedir  = "/bench"
	containerSuiteDir = "/suite"
	timeoutExitCode   = 124
)

type DockerOpts struct {
	Image   string
	Command []string
	// Basedir is bind-mounted read-only and exported as BENCHMARK_CWD.
	Basedir     string
	Timeout     time.Duration
	CPULimit    float64
	MemoryLimit int64
}

// DockerLauncher runs each launch in a fresh container so suites cannot share
// caches or heap state across samples.
type DockerLauncher struct {
	cli  *client.Client
	opts DockerOpts
}

func NewDockerLauncher(opts DockerOpts) (*DockerLauncher, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerLauncher{cli: cli, opts: opts}, nil
}

func (l *DockerLauncher) Close() error {
	return l.cli.Close()
}

func (l *DockerLauncher) Launch(ctx context.Context, target string, env map[string]string) (string, error) {
	fail := func(err error) (string, error) {
		return "", &LaunchError{Target: target, Err: err}
	}

	suiteAbs, err := filepath.Abs(target)
	if err != nil {
		return fail(fmt.Errorf("resolving suite path: %w", err))
	}
	basedirAbs, err := filepath.Abs(l.opts.Basedir)
	if err != nil {
		return fail(fmt.Errorf("resolving basedir: %w", err))
	}
	suiteInContainer := path.Join(containerSuiteDir, filepath.Base(suiteAbs))

	overlay := make(map[string]string, len(env))
	for k, v := range env {
		overlay[k] = v
	}
	overlay[EnvCwd] = containerBasedir

	mounts := []mount.Mount{
		{Type: mount.TypeBind, Source: basedirAbs, Target: containerBasedir, ReadOnly: true},
		{Type: mount.TypeBind, Source: suiteAbs, Target: suiteInContainer, ReadOnly: true},
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	if l.opts.CPULimit > 0 {
		hostCfg.NanoCPUs = int64(l.opts.CPULimit * 1e9)
	}
	if l.opts.MemoryLimit > 0 {
		hostCfg.Memory = l.opts.MemoryLimit
	}

	containerCfg := &container.Config{
		Image:      l.opts.Image,
		Cmd:        append(append([]string{}, l.opts.Command...), suiteInContainer),
		Env:        envSlice(overlay),
		WorkingDir: containerBasedir,
		Labels:     map[string]string{"packbench": "true"},
	}

	createResp, err := l.cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return fail(fmt.Errorf("creating container: %w", err))
	}
	containerID := createResp.ID
	defer func() {
		l.cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := l.cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return fail(fmt.Errorf("starting container: %w", err))
	}

	waitCtx := ctx
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	waitResult := l.cli.ContainerWait(waitCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	errCh, resultCh := waitResult.Error, waitResult.Result
	for {
		select {
		case err := <-errCh:
			if err == nil {
				errCh = nil
				continue
			}
			l.cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			_, stderr := l.collectLogs(containerID)
			return "", &LaunchError{
				Target:   target,
				ExitCode: timeoutExitCode,
				TimedOut: waitCtx.Err() != nil && ctx.Err() == nil,
				Stderr:   stderr,
				Err:      err,
			}
		case status := <-resultCh:
			stdout, stderr := l.collectLogs(containerID)
			if status.StatusCode != 0 {
				return "", &LaunchError{
					Target:   target,
					ExitCode: int(status.StatusCode),
					Stderr:   stderr,
				}
			}
			return stdout, nil
		}
	}
}

// collectLogs splits the multiplexed container log stream.
func (l *DockerLauncher) collectLogs(containerID string) (string, string) {
	logReader, err := l.cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil || logReader == nil {
		return "", ""
	}
	defer logReader.Close()
	var stdout, stderr bytes.Buffer
	stdcopy.StdCopy(&stdout, &stderr, logReader)
	return stdout.String(), stderr.String()
}

func (l *DockerLauncher) String() string {
	return fmt.Sprintf("docker %s %v", l.opts.Image, l.opts.Command)
}
