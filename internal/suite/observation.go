package suite

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// RawObservation is what a single successful launch reports on stdout.
type RawObservation struct {
	Matches int     `json:"matches"`
	Time    float64 `json:"time"`
	Memory  float64 `json:"memory"`
}

// MalformedResultError means a worker ran but its output was not a result.
type MalformedResultError struct {
	Output string
	Err    error
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("malformed suite result %q: %v", excerpt(e.Output, 80), e.Err)
}

func (e *MalformedResultError) Unwrap() error { return e.Err }

// wire form; raw fields let missing keys and quoted numbers be told apart.
type observationJSON struct {
	Matches json.RawMessage `json:"matches"`
	Time    json.RawMessage `json:"time"`
	Memory  json.RawMessage `json:"memory"`
}

// Parse decodes the stdout of one launch. The output must be a single JSON
// object carrying numeric matches, time and memory; anything else on stdout
// is rejected.
func Parse(stdout string) (RawObservation, error) {
	malformed := func(err error) (RawObservation, error) {
		return RawObservation{}, &MalformedResultError{Output: stdout, Err: err}
	}

	body := strings.TrimSpace(stdout)
	if body == "" {
		return malformed(errors.New("empty output"))
	}

	dec := json.NewDecoder(strings.NewReader(body))
	var wire observationJSON
	if err := dec.Decode(&wire); err != nil {
		return malformed(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return malformed(errors.New("unexpected content after result object"))
	}

	matches, err := field("matches", wire.Matches)
	if err != nil {
		return malformed(err)
	}
	if matches != math.Trunc(matches) {
		return malformed(fmt.Errorf("matches: %v is not an integer", matches))
	}
	// float64(math.MaxInt) rounds up to 2^63, the first value int cannot hold.
	if matches >= float64(math.MaxInt) {
		return malformed(fmt.Errorf("matches: %v overflows int", matches))
	}
	elapsed, err := field("time", wire.Time)
	if err != nil {
		return malformed(err)
	}
	memory, err := field("memory", wire.Memory)
	if err != nil {
		return malformed(err)
	}

	return RawObservation{Matches: int(matches), Time: elapsed, Memory: memory}, nil
}

func field(name string, raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%s: missing", name)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%s: %v out of range", name, v)
	}
	return v, nil
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
