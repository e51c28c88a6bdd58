package runner

import (
	"context"
	"sync"
)

// Job is a unit of work for RunPool. Launches are never pooled; the pool is
// for post-processing stored results.
type Job func(ctx context.Context) error

// RunPool executes jobs with at most maxWorkers concurrently and returns one
// error slot per job, in job order. Jobs not yet started when ctx is done are
// skipped and report ctx's error.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) []error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for i, job := range jobs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(i int, j Job) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = j(ctx)
		}(i, job)
	}
	wg.Wait()
	return errs
}

// Failed drops the nil entries of errs.
func Failed(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
