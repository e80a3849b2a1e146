package output

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/logparse/pkg/engine"
)

// TextFormatter formats reports as human-readable text: one block per log
// with its collapsed section view.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "logparse: %s, %d logs parsed, %d errors, %d warnings\n",
		report.Status,
		report.Summary.LogsParsed,
		report.Summary.TotalErrors,
		report.Summary.TotalWarnings)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== logparse report ===")
	fmt.Fprintln(w)

	for _, l := range report.Logs {
		f.formatLog(l, w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d logs parsed, %d errors, %d warnings, %d infos, %d debugs\n",
		report.Summary.LogsParsed,
		report.Summary.TotalErrors,
		report.Summary.TotalWarnings,
		report.Summary.TotalInfos,
		report.Summary.TotalDebugs)

	if f.opts.Verbose {
		fmt.Fprintf(w, "Rules: %s (%d rules)\n", report.Metadata.Rules, report.Metadata.RuleCount)
		fmt.Fprintf(w, "Lines processed: %d\n", report.Summary.LinesProcessed)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}

	_, err := fmt.Fprintf(w, "Status: %s\n", report.Status)
	return err
}

func (f *TextFormatter) formatLog(l *LogReport, w io.Writer) {
	if l.Result == nil {
		fmt.Fprintf(w, "[%s] %s\n", l.Status, l.Name)
		fmt.Fprintf(w, "  Could not parse: %s\n\n", l.Error)
		return
	}

	r := l.Result
	fmt.Fprintf(w, "[%s] %s (%d lines)\n", l.Status, l.Name, r.TotalLines)
	fmt.Fprintf(w, "  %d errors, %d warnings, %d infos, %d debugs\n",
		r.TotalErrors, r.TotalWarnings, r.TotalInfos, r.TotalDebugs)

	for _, s := range r.Sections {
		f.formatSection(s, w)
	}

	if r.Truncated {
		fmt.Fprintln(w, "  (matched lines truncated; totals are complete)")
	}
	if r.OutputLocation != "" {
		fmt.Fprintf(w, "  Annotated output: %s\n", r.OutputLocation)
	}
	if r.Failed() {
		fmt.Fprintf(w, "  Parse stopped early: %s\n", r.FailureMessage)
	}
	fmt.Fprintln(w)
}

func (f *TextFormatter) formatSection(s *engine.Section, w io.Writer) {
	header := s.Header
	if s.Implicit() {
		header = "(before first section)"
	}

	fmt.Fprintf(w, "  %s [line %d, %d lines]: %d errors, %d warnings\n",
		header, s.StartLine, s.LineCount, s.ErrorCount, s.WarningCount)

	if !f.opts.Verbose {
		return
	}
	for _, m := range s.Matches {
		fmt.Fprintf(w, "    %s %s: %s\n", m.AnchorID, m.Label, m.Text)
	}
}
