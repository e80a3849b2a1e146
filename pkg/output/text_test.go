package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_Format_Empty(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := NewReport(nil, Metadata{})

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "logparse report") {
		t.Error("Output missing header")
	}
	if !strings.Contains(output, "0 logs parsed") {
		t.Error("Output missing summary")
	}
	if !strings.Contains(output, "Status: SUCCESS") {
		t.Error("Output missing status")
	}
}

func TestTextFormatter_Format_Sections(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"[FAILURE] console.log (5 lines)",
		"(before first section)",
		"=== compile === [line 2, 4 lines]: 1 errors, 1 warnings",
		"Annotated output: out/console.html",
		"[FAILURE] missing.log",
		"Could not parse: open missing.log",
		"Status: FAILURE",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\n%s", want, output)
		}
	}

	// Matched lines are only listed in verbose mode
	if strings.Contains(output, "undefined reference") {
		t.Error("Non-verbose output should not list matched lines")
	}
}

func TestTextFormatter_Format_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()

	// Quiet mode should be a single line
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 1 {
		t.Errorf("Quiet output has %d lines, want 1", len(lines))
	}
	if !strings.HasPrefix(output, "logparse: FAILURE") {
		t.Errorf("Quiet output = %q, want status prefix", output)
	}
}

func TestTextFormatter_Format_Verbose(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true})
	report := createTestReport()

	var buf bytes.Buffer
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"L3 ERROR: ERROR: undefined reference to main",
		"L4 Deprecations: WARN: deprecated flag",
		"Rules: build.rules (3 rules)",
		"Lines processed: 5",
		"Duration:",
		"Run: " + report.RunID,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Verbose output missing %q", want)
		}
	}
}

func TestTextFormatter_Format_TruncatedAndFailed(t *testing.T) {
	report := createTestReport()
	r := report.Logs[0].Result
	r.Truncated = true
	r.FailureMessage = "scan read failed at line 6: unexpected EOF"

	var buf bytes.Buffer
	if err := NewTextFormatter(FormatOptions{}).Format(context.Background(), report, &buf); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "matched lines truncated") {
		t.Error("Output missing truncation note")
	}
	// FailureMessage alone is not a failure; Failure carries the error.
	if strings.Contains(output, "Parse stopped early") {
		t.Error("Output reports a failure that was not recorded")
	}
}
