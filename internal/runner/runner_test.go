package runner_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/packbench/internal/launcher"
	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/runner"
	"github.com/signalnine/packbench/internal/suite"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// reply is one scripted launch: stdout or an error.
type reply struct {
	stdout string
	err    error
}

func ok(matches int, time, memory float64) reply {
	return reply{stdout: fmt.Sprintf(`{"matches":%d,"time":%g,"memory":%g}`, matches, time, memory)}
}

func crash() reply {
	return reply{err: &launcher.LaunchError{Target: "suite", ExitCode: 1}}
}

func garbage() reply {
	return reply{stdout: "Ops! Broken suite run."}
}

// scriptedLauncher replays replies in order and repeats the last one.
type scriptedLauncher struct {
	replies []reply
	calls   int
	targets []string
	envs    []map[string]string
}

func (s *scriptedLauncher) Launch(_ context.Context, target string, env map[string]string) (string, error) {
	s.targets = append(s.targets, target)
	s.envs = append(s.envs, env)
	r := s.replies[len(s.replies)-1]
	if s.calls < len(s.replies) {
		r = s.replies[s.calls]
	}
	s.calls++
	return r.stdout, r.err
}

type recordingRecorder struct {
	launches int
	failures int
	retries  int
	packs    []*result.PackResult
}

func (r *recordingRecorder) Launch(_ string, _ int, err error) {
	r.launches++
	if err != nil {
		r.failures++
	}
}
func (r *recordingRecorder) Retry(string, *result.PackResult) { r.retries++ }
func (r *recordingRecorder) Pack(res *result.PackResult)      { r.packs = append(r.packs, res) }

func newRunner(l launcher.Launcher, launches int, maxStdev float64, retries int) *runner.Runner {
	return runner.New(l, runner.Options{Launches: launches, MaxStdev: maxStdev, Retries: retries}, nil)
}

func TestRunPackAllSucceed(t *testing.T) {
	l := &scriptedLauncher{replies: []reply{ok(5, 10, 2)}}
	res, err := newRunner(l, 3, 5, 2).RunPack(context.Background(), "/suites/sync/walk.js", 0)
	require.NoError(t, err)

	assert.Equal(t, "walk.js", res.Name)
	assert.Equal(t, 0, res.Errors)
	assert.Equal(t, 5, res.Entries)
	assert.Equal(t, 1, res.Retries)
	assert.Equal(t, []float64{10, 10, 10}, res.Time.Samples)
	assert.Equal(t, 10.0, res.Time.Average)
	assert.Equal(t, 0.0, res.Time.Stdev)
	assert.Equal(t, "ms", res.Time.Unit)
	assert.Equal(t, 2.0, res.Memory.Average)
	assert.Equal(t, 0.0, res.Memory.Stdev)
	assert.Equal(t, "MB", res.Memory.Unit)
	assert.Equal(t, 3, l.calls)
}

func TestRunPackZeroFillsFailures(t *testing.T) {
	l := &scriptedLauncher{replies: []reply{ok(4, 10, 3), ok(6, 20, 5), crash()}}
	res, err := newRunner(l, 3, 5, 2).RunPack(context.Background(), "glob.js", 0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 6, res.Entries, "entries come from the last successful launch")
	assert.Equal(t, []float64{10, 20, 0}, res.Time.Samples)
	assert.Equal(t, []float64{3, 5, 0}, res.Memory.Samples)
	assert.InDelta(t, 10.0, res.Time.Average, 1e-9)
	assert.InDelta(t, math.Sqrt(200.0/3), res.Time.Stdev, 1e-9)
	assert.InDelta(t, 8.165, res.Time.Stdev, 1e-3)
}

func TestRunPackParseFailureIsAbsorbed(t *testing.T) {
	l := &scriptedLauncher{replies: []reply{garbage(), ok(2, 4, 1), garbage()}}
	res, err := newRunner(l, 3, 5, 2).RunPack(context.Background(), "walk.js", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, 1, res.Succeeded())
	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, []float64{0, 4, 0}, res.Time.Samples)
}

func TestRunPackInvariants(t *testing.T) {
	patterns := [][]reply{
		{ok(1, 1, 1)},
		{crash()},
		{garbage(), ok(1, 2, 3)},
		{ok(1, 2, 3), crash(), garbage(), ok(7, 9, 9)},
	}
	for launches := 1; launches <= 6; launches++ {
		for i, p := range patterns {
			t.Run(fmt.Sprintf("launches=%d/pattern=%d", launches, i), func(t *testing.T) {
				l := &scriptedLauncher{replies: p}
				res, err := newRunner(l, launches, 5, 0).RunPack(context.Background(), "s.js", 0)
				require.NoError(t, err)
				assert.Len(t, res.Time.Samples, launches)
				assert.Len(t, res.Memory.Samples, launches)
				assert.Equal(t, launches, res.Errors+res.Succeeded())
				assert.Equal(t, launches, l.calls)
				assert.GreaterOrEqual(t, res.Time.Stdev, 0.0)
			})
		}
	}
}

func TestRunPackAttemptCounter(t *testing.T) {
	l := &scriptedLauncher{replies: []reply{ok(1, 1, 1)}}
	res, err := newRunner(l, 1, 5, 3).RunPack(context.Background(), "s.js", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Retries)
}

func TestRunPackPassesEnv(t *testing.T) {
	l := &scriptedLauncher{replies: []reply{ok(1, 1, 1)}}
	env := launcher.WorkerEnv("/bench", 1, nil)
	r := runner.New(l, runner.Options{Launches: 2, Env: env}, nil)
	_, err := r.RunPack(context.Background(), "/suites/s.js", 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"/suites/s.js", "/suites/s.js"}, l.targets)
	for _, got := range l.envs {
		assert.Equal(t, "/bench", got[launcher.EnvCwd])
		assert.Equal(t, "production", got[launcher.EnvMode])
	}
}

func TestRunPackStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &scriptedLauncher{replies: []reply{ok(1, 1, 1)}}
	_, err := newRunner(l, 3, 5, 0).RunPack(ctx, "s.js", 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, l.calls)
}

func TestRunPackWrapsForeignLaunchErrors(t *testing.T) {
	rec := &recordingRecorder{}
	l := &scriptedLauncher{replies: []reply{{err: errors.New("no such file")}}}
	r := runner.New(l, runner.Options{Launches: 2}, rec)
	res, err := r.RunPack(context.Background(), "s.js", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Errors)
	assert.Equal(t, 2, rec.failures)
	require.Len(t, rec.packs, 1)
	assert.Same(t, res, rec.packs[0])
}

func TestOutcomeClassifiesErrors(t *testing.T) {
	var launchErr *launcher.LaunchError
	var malformed *suite.MalformedResultError

	_, err := suite.Parse(garbage().stdout)
	assert.True(t, errors.As(err, &malformed))
	assert.False(t, errors.As(err, &launchErr))
	assert.False(t, runner.Outcome{Err: err}.OK())
	assert.True(t, runner.Outcome{}.OK())
}
