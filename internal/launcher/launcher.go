// Package launcher starts one isolated worker process per measurement and
// hands back its raw stdout. It never interprets that output.
package launcher

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Environment variables every worker receives.
const (
	EnvCwd   = "BENCHMARK_CWD"
	EnvMode  = "BENCHMARK_MODE"
	EnvDepth = "BENCHMARK_DEPTH"
	EnvNode  = "NODE_ENV"

	ModeProduction = "production"
)

// Launcher runs target to completion and returns what it wrote to stdout.
// Implementations must be safe to call from a single goroutine repeatedly;
// none of them keep state between launches.
type Launcher interface {
	Launch(ctx context.Context, target string, env map[string]string) (string, error)
}

// LaunchError means the worker could not be started or did not exit cleanly.
type LaunchError struct {
	Target   string
	ExitCode int
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *LaunchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "launching %s", e.Target)
	switch {
	case e.TimedOut:
		b.WriteString(": timed out")
	case e.ExitCode != 0:
		fmt.Fprintf(&b, ": exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := lastLine(e.Stderr); tail != "" {
		fmt.Fprintf(&b, " (%s)", tail)
	}
	return b.String()
}

func (e *LaunchError) Unwrap() error { return e.Err }

// WorkerEnv builds the environment overlay passed to every launch.
func WorkerEnv(basedir string, depth int, extra map[string]string) map[string]string {
	env := map[string]string{
		EnvCwd:   basedir,
		EnvMode:  ModeProduction,
		EnvNode:  ModeProduction,
		EnvDepth: strconv.Itoa(depth),
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
