// Package output provides formatting and output generation for parse reports.
package output

import (
	"time"

	"github.com/google/uuid"

	"github.com/ccollicutt/logparse/pkg/engine"
	"github.com/ccollicutt/logparse/pkg/outcome"
)

// Report is the complete output of one parsing job.
type Report struct {
	// RunID uniquely identifies this run in webhook payloads and logs.
	RunID string

	// Status is the worst verdict across all logs.
	Status outcome.Status

	// Summary provides aggregate statistics.
	Summary Summary

	// Logs holds the per-log results in configuration order.
	Logs []*LogReport

	// Metadata provides context about the run.
	Metadata Metadata
}

// LogReport is the result of classifying a single log.
type LogReport struct {
	// Name is the log path as resolved from the configuration.
	Name string

	Status outcome.Status

	// Result is nil when the log could not be opened.
	Result *engine.ParseResult

	// Error describes why the log could not be opened or parsed.
	Error string `json:",omitempty"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// LogsParsed is the number of logs that were classified.
	LogsParsed int

	// LogsFailed is the number of logs that could not be read to the end.
	LogsFailed int

	TotalErrors   int
	TotalWarnings int
	TotalInfos    int
	TotalDebugs   int

	// LinesProcessed is the total number of log lines classified.
	LinesProcessed int
}

// Metadata provides context about the parse run.
type Metadata struct {
	// ConfigFile is the path to the job configuration used.
	ConfigFile string

	// Rules is the name of the rule source.
	Rules string

	// RuleCount is the number of rules loaded.
	RuleCount int

	// ParsedAt is when the run finished.
	ParsedAt time.Time

	// Duration is how long the run took.
	Duration time.Duration
}

// NewReport creates a Report from per-log results, assigning a fresh run ID
// and folding the per-log verdicts into the overall status.
func NewReport(logs []*LogReport, meta Metadata) *Report {
	report := &Report{
		RunID:    uuid.NewString(),
		Status:   outcome.StatusSuccess,
		Logs:     logs,
		Metadata: meta,
	}

	for _, l := range logs {
		report.Status = outcome.Worse(report.Status, l.Status)

		if l.Result == nil {
			report.Summary.LogsFailed++
			continue
		}

		r := l.Result
		report.Summary.LogsParsed++
		if r.Failed() {
			report.Summary.LogsFailed++
		}
		report.Summary.TotalErrors += r.TotalErrors
		report.Summary.TotalWarnings += r.TotalWarnings
		report.Summary.TotalInfos += r.TotalInfos
		report.Summary.TotalDebugs += r.TotalDebugs
		report.Summary.LinesProcessed += r.TotalLines
	}

	return report
}

// Succeeded returns true if the overall verdict is SUCCESS.
func (r *Report) Succeeded() bool {
	return r.Status == outcome.StatusSuccess
}
