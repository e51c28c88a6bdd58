package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	UnitMilliseconds = "ms"
	UnitMegabytes    = "MB"
)

// Measure summarizes the samples of one metric across a pack. Samples keep
// launch order, including zero-filled failed launches.
type Measure struct {
	Unit    string    `json:"unit"`
	Samples []float64 `json:"samples"`
	Average float64   `json:"average"`
	Stdev   float64   `json:"stdev"`
}

// NewMeasure computes the average and population standard deviation of
// samples. An empty sequence yields zero for both.
func NewMeasure(samples []float64, unit string) Measure {
	raw := make([]float64, len(samples))
	copy(raw, samples)

	m := Measure{Unit: unit, Samples: raw}
	if len(raw) == 0 {
		return m
	}
	mean, variance := stat.PopMeanVariance(raw, nil)
	m.Average = mean
	m.Stdev = math.Sqrt(math.Max(variance, 0))
	return m
}

// Recompute rebuilds the measure from its own samples.
func (m Measure) Recompute() Measure {
	return NewMeasure(m.Samples, m.Unit)
}

// Equal reports whether two measures agree on their summary statistics
// within tol.
func (m Measure) Equal(other Measure, tol float64) bool {
	if m.Unit != other.Unit || len(m.Samples) != len(other.Samples) {
		return false
	}
	return math.Abs(m.Average-other.Average) <= tol && math.Abs(m.Stdev-other.Stdev) <= tol
}
