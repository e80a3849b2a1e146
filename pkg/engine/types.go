// Package engine runs the single-pass classification of a log stream against
// a rule set, collapsing it into sections and aggregating the totals an
// orchestrator needs to decide a build outcome.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/ccollicutt/logparse/pkg/rules"
)

// MatchedLine is a retained reference to one classified, counted log line.
// It is shared by its Section and the ParseResult's per-category lists.
type MatchedLine struct {
	// LineNumber is the 1-based line number in the input.
	LineNumber int

	// Category is the category of the rule that matched.
	Category rules.Category

	// Text is the decoded original line.
	Text string

	// AnchorID addresses the line in the annotated output.
	AnchorID string

	// Label is the display label of the rule that matched.
	Label string
}

// Section is a contiguous run of lines headed by a START match. The implicit
// leading section (lines before any START) has StartLine 0 and no Header.
type Section struct {
	StartLine int
	Header    string
	AnchorID  string

	// LineCount is the number of input lines in the section, header included.
	LineCount int

	ErrorCount   int
	WarningCount int
	InfoCount    int
	DebugCount   int

	// Matches holds the section's retained matched lines in input order.
	Matches []*MatchedLine
}

// Implicit reports whether this is the leading section before any START.
func (s *Section) Implicit() bool {
	return s.StartLine == 0
}

// ParseResult is the terminal output of one classification run.
// It is not modified after Run returns.
type ParseResult struct {
	TotalErrors   int
	TotalWarnings int
	TotalInfos    int
	TotalDebugs   int

	// TotalLines is the number of input lines read.
	TotalLines int

	// Sections in input order.
	Sections []*Section

	// Per-category retained matched lines in input order.
	Errors   []*MatchedLine
	Warnings []*MatchedLine
	Infos    []*MatchedLine
	Debugs   []*MatchedLine

	// Truncated is set when the excerpt cap was reached. Totals still count
	// every line.
	Truncated bool

	// Failure is set when the scan could not run to completion. The rest of
	// the result holds what was accumulated up to that point.
	Failure        error `json:"-"`
	FailureMessage string

	// OutputLocation is where the annotated output was written, as supplied
	// by the caller.
	OutputLocation string
}

// Failed reports whether the scan stopped early.
func (r *ParseResult) Failed() bool {
	return r.Failure != nil
}

// Cancelled reports whether the scan stopped because it was cancelled.
func (r *ParseResult) Cancelled() bool {
	var ce *CancelledError
	return errors.As(r.Failure, &ce)
}

// ScanError is an I/O failure while reading the log or writing the sink.
type ScanError struct {
	// Op is "read" or "write".
	Op   string
	Line int
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s failed at line %d: %v", e.Op, e.Line, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// CancelledError records cooperative cancellation observed between lines.
type CancelledError struct {
	// Line is the first line that was not processed.
	Line int
	Err  error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("scan cancelled before line %d: %v", e.Line, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// AnchorID returns the stable anchor for a 1-based line number.
func AnchorID(lineNumber int) string {
	return fmt.Sprintf("L%d", lineNumber)
}
