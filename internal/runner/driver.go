package runner

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/packbench/internal/result"
)

// Sink receives the final result of every suite, in suite order.
type Sink interface {
	Consume(res *result.PackResult) error
}

// Summary totals a driver run.
type Summary struct {
	Suites  int
	Errors  int
	Retries int
	// Failed lists suites where every launch of the final pack failed.
	Failed []string
}

// Driver measures suites strictly one after another and hands each final
// result to the sink.
type Driver struct {
	Runner *Runner
	Sink   Sink
}

func (d *Driver) Run(ctx context.Context, suites []string) (*Summary, error) {
	summary := &Summary{}
	for i, target := range suites {
		logrus.WithFields(logrus.Fields{
			"suite":    target,
			"position": fmt.Sprintf("%d/%d", i+1, len(suites)),
		}).Info("measuring suite")

		res, err := d.Runner.MeasureSuite(ctx, target)
		if err != nil {
			return summary, fmt.Errorf("measuring %s: %w", target, err)
		}

		summary.Suites++
		summary.Errors += res.Errors
		summary.Retries += res.Retries - 1
		if res.AllFailed() {
			logrus.WithField("suite", res.Key()).Warn("every launch failed; result is all zeros")
			summary.Failed = append(summary.Failed, res.Key())
		}

		if err := d.Sink.Consume(res); err != nil {
			return summary, fmt.Errorf("reporting %s: %w", res.Key(), err)
		}
	}
	return summary, nil
}
