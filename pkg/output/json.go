package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/logparse/pkg/outcome"
)

// JSONFormatter writes the report as indented JSON for machine consumers
// such as CI steps that gate on Status.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns "json".
func (f *JSONFormatter) Name() string {
	return "json"
}

// Verdict is the quiet JSON form of a report: the run's status, its counts
// and the logs that did not succeed.
type Verdict struct {
	RunID   string         `json:"run_id"`
	Status  outcome.Status `json:"status"`
	Summary Summary        `json:"summary"`
	Failed  []string       `json:"failed_logs,omitempty"`
}

// NewVerdict condenses report.
func NewVerdict(report *Report) Verdict {
	v := Verdict{RunID: report.RunID, Status: report.Status, Summary: report.Summary}
	for _, l := range report.Logs {
		if l.Status != outcome.StatusSuccess {
			v.Failed = append(v.Failed, l.Name)
		}
	}
	return v
}

// Format writes the full report, or only its Verdict in quiet mode.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if f.opts.Quiet {
		return enc.Encode(NewVerdict(report))
	}
	return enc.Encode(report)
}
