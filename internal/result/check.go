package result

import (
	"errors"
	"fmt"
)

const measureTolerance = 1e-9

// Check verifies that a stored pack is internally consistent and, when m is
// non-nil, that it matches the run settings.
func Check(res *PackResult, m *RunManifest) error {
	var errs []error
	if len(res.Time.Samples) != len(res.Memory.Samples) {
		errs = append(errs, fmt.Errorf("time has %d samples, memory has %d", len(res.Time.Samples), len(res.Memory.Samples)))
	}
	if res.Errors < 0 || res.Errors > res.Launches() {
		errs = append(errs, fmt.Errorf("errors %d outside [0, %d]", res.Errors, res.Launches()))
	}
	if res.Retries < 1 {
		errs = append(errs, fmt.Errorf("retries %d below 1", res.Retries))
	}
	if again := res.Time.Recompute(); !res.Time.Equal(again, measureTolerance) {
		errs = append(errs, fmt.Errorf("time measure %.6f±%.6f does not match samples (%.6f±%.6f)",
			res.Time.Average, res.Time.Stdev, again.Average, again.Stdev))
	}
	if again := res.Memory.Recompute(); !res.Memory.Equal(again, measureTolerance) {
		errs = append(errs, fmt.Errorf("memory measure %.6f±%.6f does not match samples (%.6f±%.6f)",
			res.Memory.Average, res.Memory.Stdev, again.Average, again.Stdev))
	}
	if m != nil {
		if res.Launches() != m.Launches {
			errs = append(errs, fmt.Errorf("%d samples, run used %d launches", res.Launches(), m.Launches))
		}
		if res.Retries > max(1, m.Retries) {
			errs = append(errs, fmt.Errorf("retries %d exceed budget %d", res.Retries, m.Retries))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pack %s: %w", res.Key(), errors.Join(errs...))
	}
	return nil
}
