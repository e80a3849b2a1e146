// Package outcome maps classification totals to a build verdict. The engine
// only reports facts; this is the orchestrator-side policy.
package outcome

import "github.com/ccollicutt/logparse/pkg/engine"

// Status is a build verdict.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusUnstable Status = "UNSTABLE"
	StatusFailure  Status = "FAILURE"
	StatusAborted  Status = "ABORTED"
)

// rank orders statuses from best to worst.
var rank = map[Status]int{
	StatusSuccess:  0,
	StatusUnstable: 1,
	StatusFailure:  2,
	StatusAborted:  3,
}

// Worse returns the worse of a and b.
func Worse(a, b Status) Status {
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Policy holds the outcome flags.
type Policy struct {
	// FailOnError marks the build failed when any error line was found.
	FailOnError bool

	// UnstableOnWarning marks the build unstable when any warning line was found.
	UnstableOnWarning bool
}

// Decide returns the verdict for a result. A cancelled scan is ABORTED.
// Any other scan failure is judged on the partial totals; the caller reports
// the failure separately.
func (p Policy) Decide(r *engine.ParseResult) Status {
	if r == nil {
		return StatusAborted
	}
	if r.Cancelled() {
		return StatusAborted
	}
	if p.FailOnError && r.TotalErrors > 0 {
		return StatusFailure
	}
	if p.UnstableOnWarning && r.TotalWarnings > 0 {
		return StatusUnstable
	}
	return StatusSuccess
}

// ExitCode maps a status to a process exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusFailure:
		return 1
	case StatusUnstable:
		return 3
	case StatusAborted:
		return 4
	default:
		return 0
	}
}
