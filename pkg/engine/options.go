package engine

import (
	"log/slog"

	"github.com/ccollicutt/logparse/pkg/metrics"
	"github.com/ccollicutt/logparse/pkg/source"
)

// DefaultMaxMatchedLines caps the matched-line excerpts retained per run.
const DefaultMaxMatchedLines = 10000

// Options configures a classification run.
type Options struct {
	// PreformattedOutput escapes each line and wraps it in <pre> for literal
	// display instead of inline rich HTML.
	PreformattedOutput bool

	// Charset used to decode the log. Defaults to UTF-8.
	Charset string

	// OutputLocation is copied to ParseResult.OutputLocation untouched.
	OutputLocation string

	// MaxMatchedLines caps retained excerpts. Zero selects
	// DefaultMaxMatchedLines; a negative value disables the cap.
	MaxMatchedLines int

	// MaxLineBytes caps a single decoded line; excess bytes are dropped.
	// Zero selects source.DefaultMaxLineBytes.
	MaxLineBytes int

	// Recorder receives run metrics. Defaults to metrics.NoopRecorder.
	Recorder metrics.Recorder

	// Logger receives debug output. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Validate checks option values that would otherwise fail mid-run.
func (o Options) Validate() error {
	_, err := source.LookupCharset(o.Charset)
	return err
}

func (o Options) withDefaults() Options {
	if o.Charset == "" {
		o.Charset = source.DefaultCharset
	}
	if o.MaxMatchedLines == 0 {
		o.MaxMatchedLines = DefaultMaxMatchedLines
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = source.DefaultMaxLineBytes
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
