package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/stats"
)

type Run struct {
	Manifest *result.RunManifest  `json:"manifest,omitempty"`
	Packs    []*result.PackResult `json:"packs"`
}

// Load reads the manifest and stored packs of runDir. A missing manifest is
// tolerated; a missing packs directory is not.
func Load(runDir string) (*Run, error) {
	packs, err := result.ReadPacks(runDir)
	if err != nil {
		return nil, err
	}
	run := &Run{Packs: packs}
	if m, err := result.ReadManifest(runDir); err == nil {
		run.Manifest = m
	}
	return run, nil
}

// Generate reads stored results and renders a summary in the given format.
func Generate(runDir, format string, w io.Writer) error {
	run, err := Load(runDir)
	if err != nil {
		return err
	}
	return Write(run, format, w)
}

func Write(run *Run, format string, w io.Writer) error {
	switch format {
	case "json":
		return writeJSON(run, w)
	case "markdown":
		_, err := fmt.Fprintln(w, summaryTable(run).RenderMarkdown())
		return err
	case "table", "":
		if run.Manifest != nil {
			fmt.Fprintln(w, header(run.Manifest))
		}
		_, err := fmt.Fprintln(w, summaryTable(run).Render())
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func header(m *result.RunManifest) string {
	h := fmt.Sprintf("Run %s  type=%s depth=%d launches=%d max_stdev=%g retries=%d launcher=%q",
		m.ID, m.Type, m.Depth, m.Launches, m.MaxStdev, m.Retries, m.Launcher)
	if m.Revision != "" {
		h += " revision=" + m.Revision
	}
	return h
}

func summaryTable(run *Run) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Suite", "Entries", "Errors", "Attempts", "Time", "Memory"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Entries", Align: text.AlignRight},
		{Name: "Errors", Align: text.AlignRight},
		{Name: "Attempts", Align: text.AlignRight},
		{Name: "Time", Align: text.AlignRight},
		{Name: "Memory", Align: text.AlignRight},
	})
	var errs, launches int
	for _, p := range run.Packs {
		t.AppendRow(table.Row{
			p.Key(),
			p.Entries,
			fmt.Sprintf("%d/%d", p.Errors, p.Launches()),
			p.Retries,
			formatMeasure(p.Time),
			formatMeasure(p.Memory),
		})
		errs += p.Errors
		launches += p.Launches()
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d suites", len(run.Packs)), "", fmt.Sprintf("%d/%d", errs, launches), "", "", ""})
	t.SetStyle(table.StyleLight)
	return t
}

func formatMeasure(m stats.Measure) string {
	return fmt.Sprintf("%.3f ±%.3f %s", m.Average, m.Stdev, m.Unit)
}

func writeJSON(run *Run, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
