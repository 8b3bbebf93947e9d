// Package export renders result tables and sweep reports for humans.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/optses/core/model"
	"github.com/kilianp07/optses/core/sweep"
)

// WriteChartHTML renders one line series per column of t, or only the
// given columns, as a standalone HTML page.
func WriteChartHTML(w io.Writer, title string, t *model.Table, columns ...string) error {
	if len(columns) == 0 {
		columns = t.Columns
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	xAxis := make([]string, len(t.Index))
	for i, ts := range t.Index {
		xAxis[i] = ts.Format("2006-01-02 15:04")
	}
	line.SetXAxis(xAxis)
	for _, c := range columns {
		values, ok := t.Column(c)
		if !ok {
			return fmt.Errorf("unknown column %q", c)
		}
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(c, data)
	}
	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

type reportEntry struct {
	Scenario string `json:"scenario"`
	Slot     int    `json:"slot"`
	Status   string `json:"status"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
	Elapsed  string `json:"elapsed"`
}

// WriteReport writes the outcome of a sweep as JSON, in completion order.
func WriteReport(w io.Writer, r *sweep.Report) error {
	out := struct {
		RunID     string        `json:"run_id"`
		Workers   int           `json:"workers"`
		Succeeded int           `json:"succeeded"`
		Failed    int           `json:"failed"`
		Elapsed   string        `json:"elapsed"`
		Finished  time.Time     `json:"finished"`
		Results   []reportEntry `json:"results"`
	}{
		RunID:     r.RunID,
		Workers:   r.Workers,
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Elapsed:   sweep.FormatElapsed(r.Elapsed),
		Finished:  time.Now().UTC(),
	}
	for _, res := range r.Results {
		e := reportEntry{Scenario: res.Name, Slot: res.Slot, Status: "succeeded", Elapsed: sweep.FormatElapsed(res.Elapsed)}
		if res.Err != nil {
			e.Status, e.Kind, e.Error = "failed", sweep.FailureKind(res.Err), res.Err.Error()
		}
		out.Results = append(out.Results, e)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
