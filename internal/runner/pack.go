package runner

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/packbench/internal/launcher"
	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/stats"
	"github.com/signalnine/packbench/internal/suite"
)

// Options is the read-only slice of the run configuration the runner needs.
type Options struct {
	Launches int
	MaxStdev float64
	Retries  int
	// Root is the discovery root; results are keyed by suite path below it.
	Root string
	// Env is the overlay handed to every worker.
	Env map[string]string
}

// Recorder observes runner progress. Implementations must not block.
type Recorder interface {
	Launch(suite string, attempt int, err error)
	Retry(suite string, rejected *result.PackResult)
	Pack(res *result.PackResult)
}

type nopRecorder struct{}

func (nopRecorder) Launch(string, int, error)        {}
func (nopRecorder) Retry(string, *result.PackResult) {}
func (nopRecorder) Pack(*result.PackResult)          {}

// Runner measures suites one launch at a time. It never starts two workers
// at once.
type Runner struct {
	launcher launcher.Launcher
	opts     Options
	recorder Recorder
}

func New(l launcher.Launcher, opts Options, rec Recorder) *Runner {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Runner{launcher: l, opts: opts, recorder: rec}
}

// Outcome is the result of one launch: an observation or the reason there
// is none.
type Outcome struct {
	Observation suite.RawObservation
	Err         error
}

func (o Outcome) OK() bool { return o.Err == nil }

func (r *Runner) launchOnce(ctx context.Context, target string) Outcome {
	stdout, err := r.launcher.Launch(ctx, target, r.opts.Env)
	if err != nil {
		var launchErr *launcher.LaunchError
		if !errors.As(err, &launchErr) {
			err = &launcher.LaunchError{Target: target, Err: err}
		}
		return Outcome{Err: err}
	}
	obs, err := suite.Parse(stdout)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Observation: obs}
}

// RunPack launches target exactly Launches times in sequence and reduces the
// observations. A failed launch counts as an error and contributes a zero
// sample to both measures. The only error returned is ctx's.
func (r *Runner) RunPack(ctx context.Context, target string, attempt int) (*result.PackResult, error) {
	name := suite.Name(target)
	key := suite.RelPath(r.opts.Root, target)
	res := &result.PackResult{
		Name:    name,
		Path:    key,
		Retries: attempt + 1,
	}
	times := make([]float64, 0, r.opts.Launches)
	memory := make([]float64, 0, r.opts.Launches)

	for i := 0; i < r.opts.Launches; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := r.launchOnce(ctx, target)
		if err := ctx.Err(); err != nil {
			// An interrupted launch is not a measurement.
			return nil, err
		}
		r.recorder.Launch(key, res.Retries, out.Err)

		log := logrus.WithFields(logrus.Fields{"suite": key, "attempt": res.Retries, "launch": i + 1})
		if !out.OK() {
			log.WithError(out.Err).Warn("launch failed")
			res.Errors++
			times = append(times, 0)
			memory = append(memory, 0)
			continue
		}
		log.WithFields(logrus.Fields{
			"matches": out.Observation.Matches,
			"time":    out.Observation.Time,
			"memory":  out.Observation.Memory,
		}).Debug("launch observed")
		res.Entries = out.Observation.Matches
		times = append(times, out.Observation.Time)
		memory = append(memory, out.Observation.Memory)
	}

	res.Time = stats.NewMeasure(times, stats.UnitMilliseconds)
	res.Memory = stats.NewMeasure(memory, stats.UnitMegabytes)
	r.recorder.Pack(res)
	return res, nil
}
