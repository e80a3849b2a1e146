package output

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Formatter renders a parse Report, the verdict and per-log counts of one
// logparse run, for a terminal or a CI step.
type Formatter interface {
	// Format writes report to w.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name is the value accepted by --output.
	Name() string
}

// FormatOptions selects how much of a report is rendered.
type FormatOptions struct {
	// Verbose adds each retained matched line under its section.
	Verbose bool

	// Quiet reduces the report to the run's verdict and summary counts.
	Quiet bool
}

var formatters = map[string]func(FormatOptions) Formatter{
	"text": func(o FormatOptions) Formatter { return NewTextFormatter(o) },
	"json": func(o FormatOptions) Formatter { return NewJSONFormatter(o) },
}

// FormatNames lists the accepted --output values.
func FormatNames() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatterFor returns the formatter registered under name.
func FormatterFor(name string, opts FormatOptions) (Formatter, error) {
	newFormatter, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (use one of %v)", name, FormatNames())
	}
	return newFormatter(opts), nil
}
