// Package metrics provides observability hooks for log classification runs.
//
// Components receive a Recorder through their options. NoopRecorder is the
// default; PrometheusRecorder exports to a Prometheus registry, which the CLI
// can write to a node_exporter textfile.
package metrics

import "time"

// RunOutcome labels how a classification run ended.
type RunOutcome string

const (
	RunCompleted RunOutcome = "completed"
	RunFailed    RunOutcome = "failed"
	RunCancelled RunOutcome = "cancelled"
)

// Recorder receives the facts of a finished classification run.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AddLines(n int)
	AddMatches(category string, n int)
	ObserveScanDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcome)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) AddLines(int)                      {}
func (NoopRecorder) AddMatches(string, int)            {}
func (NoopRecorder) ObserveScanDuration(time.Duration) {}
func (NoopRecorder) IncRunOutcome(RunOutcome)          {}
