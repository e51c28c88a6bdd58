package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalnine/packbench/internal/launcher"
	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/suite"
)

const Namespace = "packbench"

const (
	OutcomeOK        = "ok"
	OutcomeLaunch    = "launch_error"
	OutcomeMalformed = "malformed_result"
	OutcomeOther     = "error"
)

// Recorder exports runner progress as Prometheus metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	launches   *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	retries    *prometheus.CounterVec
	packErrors *prometheus.GaugeVec
	averages   *prometheus.GaugeVec
	deviations *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "launches_total",
			Help:      "Worker launches by outcome",
		}, []string{"suite", "outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pack_attempts_total",
			Help:      "Completed pack attempts",
		}, []string{"suite"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pack_retries_total",
			Help:      "Packs rejected for exceeding the time deviation threshold",
		}, []string{"suite"}),
		packErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pack_errors",
			Help:      "Failed launches in the latest pack",
		}, []string{"suite"}),
		averages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "measure_average",
			Help:      "Average of the latest pack per metric",
		}, []string{"suite", "metric", "unit"}),
		deviations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "measure_stdev",
			Help:      "Population standard deviation of the latest pack per metric",
		}, []string{"suite", "metric", "unit"}),
	}
	r.registry.MustRegister(r.launches, r.attempts, r.retries, r.packErrors, r.averages, r.deviations)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OutcomeLabel classifies a launch error for the outcome label.
func OutcomeLabel(err error) string {
	var launchErr *launcher.LaunchError
	var malformed *suite.MalformedResultError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &launchErr):
		return OutcomeLaunch
	case errors.As(err, &malformed):
		return OutcomeMalformed
	default:
		return OutcomeOther
	}
}

func (r *Recorder) Launch(suiteName string, _ int, err error) {
	r.launches.WithLabelValues(suiteName, OutcomeLabel(err)).Inc()
}

func (r *Recorder) Retry(suiteName string, _ *result.PackResult) {
	r.retries.WithLabelValues(suiteName).Inc()
}

func (r *Recorder) Pack(res *result.PackResult) {
	r.attempts.WithLabelValues(res.Key()).Inc()
	r.packErrors.WithLabelValues(res.Key()).Set(float64(res.Errors))
	r.averages.WithLabelValues(res.Key(), "time", res.Time.Unit).Set(res.Time.Average)
	r.deviations.WithLabelValues(res.Key(), "time", res.Time.Unit).Set(res.Time.Stdev)
	r.averages.WithLabelValues(res.Key(), "memory", res.Memory.Unit).Set(res.Memory.Average)
	r.deviations.WithLabelValues(res.Key(), "memory", res.Memory.Unit).Set(res.Memory.Stdev)
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
