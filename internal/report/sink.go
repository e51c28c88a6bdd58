package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/signalnine/packbench/internal/result"
	"github.com/signalnine/packbench/internal/runner"
	"github.com/signalnine/packbench/internal/stats"
)

// ConsoleSink prints each suite result as soon as it is final.
type ConsoleSink struct {
	W io.Writer
}

func (s *ConsoleSink) Consume(res *result.PackResult) error {
	_, err := io.WriteString(s.W, FormatPack(res)+"\n")
	return err
}

// StoreSink persists each result into a run directory.
type StoreSink struct {
	RunDir string
}

func (s *StoreSink) Consume(res *result.PackResult) error {
	if err := result.WritePackResult(s.RunDir, res); err != nil {
		return fmt.Errorf("storing %s: %w", res.Key(), err)
	}
	return nil
}

// MultiSink hands each result to every sink in order, stopping at the first
// error.
type MultiSink []runner.Sink

func (m MultiSink) Consume(res *result.PackResult) error {
	for _, s := range m {
		if err := s.Consume(res); err != nil {
			return err
		}
	}
	return nil
}

// FormatPack renders one suite result as a titled table of its measures.
func FormatPack(res *result.PackResult) string {
	t := table.NewWriter()
	t.SetTitle("%s  (entries: %d, errors: %d/%d, attempts: %d)",
		res.Key(), res.Entries, res.Errors, res.Launches(), res.Retries)
	t.AppendHeader(table.Row{"Metric", "Average", "Stdev", "Unit", "Raw"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Average", Align: text.AlignRight},
		{Name: "Stdev", Align: text.AlignRight},
		{Name: "Raw", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	t.AppendRow(measureRow("time", res.Time))
	t.AppendRow(measureRow("memory", res.Memory))
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func measureRow(name string, m stats.Measure) table.Row {
	return table.Row{name, fmt.Sprintf("%.3f", m.Average), fmt.Sprintf("%.3f", m.Stdev), m.Unit, joinSamples(m.Samples)}
}

func joinSamples(samples []float64) string {
	parts := make([]string, len(samples))
	for i, v := range samples {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}
