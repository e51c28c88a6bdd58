package runner

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/packbench/internal/result"
)

// MeasureSuite runs packs of target until the time deviation is within
// MaxStdev or the retry budget is spent, and returns the last pack. Only the
// time measure gates a retry; memory deviation is reported but never acted on.
func (r *Runner) MeasureSuite(ctx context.Context, target string) (*result.PackResult, error) {
	res, err := r.RunPack(ctx, target, 0)
	if err != nil {
		return nil, err
	}
	for r.needsRetry(res) {
		logrus.WithFields(logrus.Fields{
			"suite":     res.Key(),
			"attempt":   res.Retries,
			"stdev":     res.Time.Stdev,
			"max_stdev": r.opts.MaxStdev,
		}).Info("deviation too high, retrying pack")
		r.recorder.Retry(res.Key(), res)

		res, err = r.RunPack(ctx, target, res.Retries)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Runner) needsRetry(res *result.PackResult) bool {
	return res.Time.Stdev > r.opts.MaxStdev && res.Retries < r.opts.Retries
}
