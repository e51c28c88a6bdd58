package result

import (
	"time"

	"github.com/signalnine/packbench/internal/stats"
)

// PackResult is one complete measurement of one suite. Every attempt builds a
// fresh value; only the accepted attempt is reported.
type PackResult struct {
	Name string `json:"name"`
	// Path is the suite's slash-separated path below the discovery root.
	Path string `json:"path,omitempty"`
	// Errors counts launches that failed to start, exited badly or printed
	// an unparseable result.
	Errors int `json:"errors"`
	// Entries is the match count of the last successful launch.
	Entries int           `json:"entries"`
	Retries int           `json:"retries"`
	Time    stats.Measure `json:"time"`
	Memory  stats.Measure `json:"memory"`
}

// Key identifies the suite within a run. Suites sharing a file name in
// different directories have distinct keys.
func (r *PackResult) Key() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Name
}

// Launches is the number of launches the pack performed.
func (r *PackResult) Launches() int {
	return len(r.Time.Samples)
}

// Succeeded is the number of launches that produced an observation.
func (r *PackResult) Succeeded() int {
	return r.Launches() - r.Errors
}

// AllFailed reports a pack in which no launch produced an observation.
func (r *PackResult) AllFailed() bool {
	return r.Launches() > 0 && r.Errors == r.Launches()
}

// RunManifest describes the settings a run directory was produced with.
type RunManifest struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Type      string    `json:"type"`
	Depth     int       `json:"depth"`
	Launches  int       `json:"launches"`
	MaxStdev  float64   `json:"max_stdev"`
	Retries   int       `json:"retries"`
	Launcher  string    `json:"launcher"`
	Revision  string    `json:"revision,omitempty"`
}
