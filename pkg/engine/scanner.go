package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ccollicutt/logparse/internal/logfields"
	"github.com/ccollicutt/logparse/pkg/metrics"
	"github.com/ccollicutt/logparse/pkg/rules"
	"github.com/ccollicutt/logparse/pkg/source"
)

// ClassifyLog validates opts and classifies log against rs, writing the
// annotated output to sink. An error is returned only for preconditions
// (nil rule set, invalid options); scan failures are reported in
// ParseResult.Failure.
func ClassifyLog(ctx context.Context, log io.Reader, rs *rules.RuleSet, sink io.Writer, opts Options) (*ParseResult, error) {
	if rs == nil {
		return nil, errors.New("rule set is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return Run(ctx, log, rs, sink, opts), nil
}

// Run reads log strictly forward one line at a time, classifies every line,
// tracks sections and totals, and writes one annotated line to sink per input
// line. A nil sink discards the annotated output.
//
// Run always returns a ParseResult. Read errors, write errors and
// cancellation (checked before each line) stop the scan early and are
// recorded in Failure alongside the partial totals.
func Run(ctx context.Context, log io.Reader, rs *rules.RuleSet, sink io.Writer, opts Options) *ParseResult {
	opts = opts.withDefaults()
	if sink == nil {
		sink = io.Discard
	}

	s := &scan{
		rs:        rs,
		tracker:   newSectionTracker(),
		agg:       newAggregator(opts.MaxMatchedLines, opts.OutputLocation),
		annotator: Annotator{Preformatted: opts.PreformattedOutput},
		out:       bufio.NewWriterSize(sink, 64*1024),
		logger:    opts.Logger,
	}

	start := time.Now()
	failure := s.run(ctx, log, opts)
	result := s.agg.finalize(s.tracker.finish(), failure)

	record(opts.Recorder, result, time.Since(start))
	opts.Logger.Debug("scan finished",
		logfields.Rules(rs.Name()),
		logfields.Line(result.TotalLines),
		logfields.Errors(result.TotalErrors),
		logfields.Warnings(result.TotalWarnings),
		logfields.Infos(result.TotalInfos),
		logfields.Error(result.Failure))

	return result
}

// scan is the per-run state; it is never shared between runs.
type scan struct {
	rs        *rules.RuleSet
	tracker   *sectionTracker
	agg       *aggregator
	annotator Annotator
	out       *bufio.Writer
	logger    *slog.Logger
}

func (s *scan) run(ctx context.Context, log io.Reader, opts Options) error {
	reader, err := source.NewLineReader(log, opts.Charset, opts.MaxLineBytes)
	if err != nil {
		return &ScanError{Op: "read", Line: 1, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.flushAfter(&CancelledError{Line: reader.LineNumber() + 1, Err: err})
		}

		line, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if isContextErr(err) {
				return s.flushAfter(&CancelledError{Line: reader.LineNumber() + 1, Err: err})
			}
			return s.flushAfter(&ScanError{Op: "read", Line: reader.LineNumber() + 1, Err: err})
		}

		category := s.process(line)

		if _, err := s.out.WriteString(s.annotator.Format(line.Number, category, line.Text)); err != nil {
			return &ScanError{Op: "write", Line: line.Number, Err: err}
		}
		if err := s.out.WriteByte('\n'); err != nil {
			return &ScanError{Op: "write", Line: line.Number, Err: err}
		}
	}

	if err := s.out.Flush(); err != nil {
		return &ScanError{Op: "write", Line: reader.LineNumber(), Err: err}
	}
	return nil
}

// process classifies one line and feeds the section tracker and aggregator.
func (s *scan) process(line *source.Line) rules.Category {
	m := s.rs.Match(line.Text)
	s.agg.line()

	switch {
	case m.Category == rules.CategoryStart:
		s.tracker.start(line.Number, line.Text)
		s.logger.Debug("section opened", logfields.Line(line.Number), logfields.Section(line.Text))
	case m.Category.Counted():
		s.tracker.line()
		ml := &MatchedLine{
			LineNumber: line.Number,
			Category:   m.Category,
			Text:       line.Text,
			AnchorID:   AnchorID(line.Number),
			Label:      m.Label,
		}
		s.tracker.record(ml, s.agg.add(ml))
	default:
		s.tracker.line()
	}

	return m.Category
}

// flushAfter flushes what was already annotated and returns cause.
func (s *scan) flushAfter(cause error) error {
	_ = s.out.Flush()
	return cause
}

func record(rec metrics.Recorder, r *ParseResult, d time.Duration) {
	rec.AddLines(r.TotalLines)
	rec.AddMatches(string(rules.CategoryError), r.TotalErrors)
	rec.AddMatches(string(rules.CategoryWarning), r.TotalWarnings)
	rec.AddMatches(string(rules.CategoryInfo), r.TotalInfos)
	rec.AddMatches(string(rules.CategoryDebug), r.TotalDebugs)
	rec.ObserveScanDuration(d)

	switch {
	case r.Cancelled():
		rec.IncRunOutcome(metrics.RunCancelled)
	case r.Failed():
		rec.IncRunOutcome(metrics.RunFailed)
	default:
		rec.IncRunOutcome(metrics.RunCompleted)
	}
}
