package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/logparse/pkg/metrics"
	"github.com/ccollicutt/logparse/pkg/rules"
)

func logOf(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func run(t *testing.T, ruleText string, lines []string, opts Options) (*ParseResult, string) {
	t.Helper()
	var out bytes.Buffer
	res, err := ClassifyLog(context.Background(), logOf(lines...), rules.MustCompile(ruleText), &out, opts)
	require.NoError(t, err)
	return res, out.String()
}

func TestRun_ScenarioA(t *testing.T) {
	res, _ := run(t, "error /ERROR:/\nwarning /WARN:/",
		[]string{"INFO: start", "ERROR: disk full", "WARN: low mem", "done"}, Options{})

	require.Nil(t, res.Failure)
	assert.Equal(t, 1, res.TotalErrors)
	assert.Equal(t, 1, res.TotalWarnings)
	assert.Equal(t, 0, res.TotalInfos)
	assert.Equal(t, 4, res.TotalLines)

	require.Len(t, res.Sections, 1)
	s := res.Sections[0]
	assert.True(t, s.Implicit())
	assert.Equal(t, 4, s.LineCount)
	require.Len(t, s.Matches, 2)
	assert.Equal(t, 2, s.Matches[0].LineNumber)
	assert.Equal(t, rules.CategoryError, s.Matches[0].Category)
	assert.Equal(t, "ERROR: disk full", s.Matches[0].Text)
	assert.Equal(t, 3, s.Matches[1].LineNumber)
	assert.Equal(t, rules.CategoryWarning, s.Matches[1].Category)

	require.Len(t, res.Errors, 1)
	assert.Same(t, s.Matches[0], res.Errors[0], "section and aggregator must share the matched line")
}

func TestRun_ScenarioB(t *testing.T) {
	res, _ := run(t, "start /^=== /\nerror /FAIL/",
		[]string{"=== stage1 ===", "ok", "=== stage2 ===", "FAIL: x"}, Options{})

	require.Len(t, res.Sections, 2, "no implicit section when the log opens with START")

	first, second := res.Sections[0], res.Sections[1]
	assert.Equal(t, "=== stage1 ===", first.Header)
	assert.Equal(t, 1, first.StartLine)
	assert.Equal(t, "L1", first.AnchorID)
	assert.Equal(t, 0, first.ErrorCount)
	assert.Equal(t, 2, first.LineCount)
	assert.Empty(t, first.Matches)

	assert.Equal(t, "=== stage2 ===", second.Header)
	assert.Equal(t, 3, second.StartLine)
	assert.Equal(t, 1, second.ErrorCount)
	require.Len(t, second.Matches, 1)
	assert.Equal(t, 4, second.Matches[0].LineNumber)

	assert.Equal(t, 1, res.TotalErrors)
}

func TestRun_EmptyLog(t *testing.T) {
	var out bytes.Buffer
	res := Run(context.Background(), strings.NewReader(""), rules.MustCompile("error /E/"), &out, Options{})

	assert.Nil(t, res.Failure)
	assert.Empty(t, res.FailureMessage)
	assert.Zero(t, res.TotalErrors+res.TotalWarnings+res.TotalInfos+res.TotalDebugs)
	assert.Zero(t, res.TotalLines)
	assert.Empty(t, res.Sections)
	assert.Zero(t, out.Len())
}

func TestRun_NoStartSingleImplicitSection(t *testing.T) {
	res, _ := run(t, "error /E/\ninfo /I/", []string{"a", "I1", "b", "E1", "I2"}, Options{})

	require.Len(t, res.Sections, 1)
	s := res.Sections[0]
	assert.True(t, s.Implicit())
	var nums []int
	for _, m := range s.Matches {
		nums = append(nums, m.LineNumber)
	}
	assert.Equal(t, []int{2, 4, 5}, nums)
}

func TestRun_ImplicitSectionWithoutMatches(t *testing.T) {
	res, _ := run(t, "error /E/", []string{"nothing", "here"}, Options{})
	require.Len(t, res.Sections, 1)
	assert.Empty(t, res.Sections[0].Matches)
	assert.Equal(t, 2, res.Sections[0].LineCount)
}

func TestRun_LeadingLinesBeforeStart(t *testing.T) {
	res, _ := run(t, "start /^##/\nwarning /W/", []string{"W early", "## one", "W late"}, Options{})

	require.Len(t, res.Sections, 2)
	assert.True(t, res.Sections[0].Implicit())
	assert.Equal(t, 1, res.Sections[0].WarningCount)
	assert.Equal(t, 1, res.Sections[1].WarningCount)
	assert.Equal(t, 2, res.TotalWarnings)
}

func TestRun_SectionTotalsConsistent(t *testing.T) {
	lines := []string{
		"E0", "=== a", "E1", "W1", "I1", "D1", "=== b", "W2", "ok", "=== c", "E2", "E3", "I2",
	}
	res, _ := run(t, "start /^=== /\nerror /^E/\nwarning /^W/\ninfo /^I/\ndebug /^D/", lines, Options{})

	var errs, warns, infos, debugs, lineCount int
	for _, s := range res.Sections {
		errs += s.ErrorCount
		warns += s.WarningCount
		infos += s.InfoCount
		debugs += s.DebugCount
		lineCount += s.LineCount
	}
	assert.Equal(t, res.TotalErrors, errs)
	assert.Equal(t, res.TotalWarnings, warns)
	assert.Equal(t, res.TotalInfos, infos)
	assert.Equal(t, res.TotalDebugs, debugs)
	assert.Equal(t, res.TotalLines, lineCount)
	assert.Equal(t, 4, res.TotalErrors)
	assert.Equal(t, 1, res.TotalDebugs)
}

func TestRun_Idempotent(t *testing.T) {
	ruleText := "start /^=== /\nerror /FAIL/\nwarning /WARN/"
	lines := []string{"x", "=== a", "FAIL 1", "WARN 1", "=== b", "FAIL 2"}

	first, out1 := run(t, ruleText, lines, Options{})
	second, out2 := run(t, ruleText, lines, Options{})

	assert.Equal(t, first, second)
	assert.Equal(t, out1, out2)
}

func TestRun_AnchorsMatchLineNumbers(t *testing.T) {
	lines := []string{"ok", "ERROR a", "ok", "ok", "ERROR b"}
	res, out := run(t, "error /ERROR/", lines, Options{})

	outLines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, outLines, len(lines), "one output line per input line")
	for i, l := range outLines {
		assert.Contains(t, l, fmt.Sprintf(`id="L%d"`, i+1))
	}

	for _, m := range res.Errors {
		assert.Equal(t, AnchorID(m.LineNumber), m.AnchorID)
		assert.Equal(t, lines[m.LineNumber-1], m.Text)
		assert.Contains(t, outLines[m.LineNumber-1], `class="error"`)
	}
}

func TestRun_AnnotatedOutputEscaped(t *testing.T) {
	_, out := run(t, "error /boom/", []string{`<script>alert("boom")</script> & more`}, Options{})
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "&amp; more")
}

func TestRun_PreformattedOutput(t *testing.T) {
	_, out := run(t, "warning /W/", []string{"W <x>"}, Options{PreformattedOutput: true})
	assert.Equal(t, `<pre id="L1" class="warning">W &lt;x&gt;</pre>`+"\n", out)

	_, out = run(t, "warning /W/", []string{"W <x>"}, Options{})
	assert.Equal(t, `<span id="L1" class="warning">W &lt;x&gt;</span><br/>`+"\n", out)
}

func TestRun_OKRuleShortCircuits(t *testing.T) {
	res, out := run(t, "ok /expected ERROR/\nerror /ERROR/", []string{"expected ERROR in test", "ERROR real"}, Options{})
	assert.Equal(t, 1, res.TotalErrors)
	assert.Contains(t, out, `class="ok"`)
}

func TestRun_LabelsCarried(t *testing.T) {
	res, _ := run(t, "error /FAIL/ Test failures", []string{"FAIL a"}, Options{})
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Test failures", res.Errors[0].Label)
}

func TestRun_OutputLocationOpaque(t *testing.T) {
	res, _ := run(t, "error /E/", []string{"E"}, Options{OutputLocation: "s3://bucket/log.html"})
	assert.Equal(t, "s3://bucket/log.html", res.OutputLocation)
}

func TestRun_MatchedLineCap(t *testing.T) {
	lines := []string{"E1", "E2", "W1", "E3"}
	res, _ := run(t, "error /E/\nwarning /W/", lines, Options{MaxMatchedLines: 2})

	assert.True(t, res.Truncated)
	assert.Equal(t, 3, res.TotalErrors, "totals keep counting past the cap")
	assert.Equal(t, 1, res.TotalWarnings)
	assert.Len(t, res.Errors, 2)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Sections, 1)
	assert.Len(t, res.Sections[0].Matches, 2)
	assert.Equal(t, 3, res.Sections[0].ErrorCount)

	res, _ = run(t, "error /E/", lines, Options{MaxMatchedLines: -1})
	assert.False(t, res.Truncated)
	assert.Len(t, res.Errors, 3)
}

func TestRun_Charset(t *testing.T) {
	// "Größe ERROR" in ISO-8859-1
	latin1 := []byte{'G', 'r', 0xf6, 0xdf, 'e', ' ', 'E', 'R', 'R', 'O', 'R', '\n'}
	var out bytes.Buffer
	res, err := ClassifyLog(context.Background(), bytes.NewReader(latin1), rules.MustCompile("error /Größe/"), &out, Options{Charset: "iso-8859-1"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Größe ERROR", res.Errors[0].Text)
}

func TestRun_MalformedUTF8Replaced(t *testing.T) {
	data := []byte("bad \xff\xfe bytes ERROR\nnext\n")
	res := Run(context.Background(), bytes.NewReader(data), rules.MustCompile("error /ERROR/"), nil, Options{})
	require.Nil(t, res.Failure)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Text, "�")
	assert.Equal(t, 2, res.TotalLines)
}

func TestRun_LongLineTruncated(t *testing.T) {
	long := strings.Repeat("x", 100) + " ERROR"
	res := Run(context.Background(), logOf(long, "ERROR short"), rules.MustCompile("error /ERROR/"), nil, Options{MaxLineBytes: 10})
	require.Nil(t, res.Failure)
	assert.Equal(t, 2, res.TotalLines, "line numbering survives truncation")
	assert.Equal(t, 1, res.TotalErrors)
	assert.Equal(t, 2, res.Errors[0].LineNumber)
}

func TestRun_LastLineWithoutNewline(t *testing.T) {
	res := Run(context.Background(), strings.NewReader("ok\nERROR end"), rules.MustCompile("error /ERROR/"), nil, Options{})
	assert.Equal(t, 2, res.TotalLines)
	assert.Equal(t, 1, res.TotalErrors)
}

func TestRun_CRLFLastLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	res := Run(context.Background(), strings.NewReader("INFO ok\r\nWARN\r"), rules.MustCompile("warning /WARN$/"), &out, Options{})
	assert.Equal(t, 1, res.TotalWarnings)
	assert.Contains(t, out.String(), `<span id="L2" class="warning">WARN</span><br/>`)
	assert.NotContains(t, out.String(), "&#13;")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Run(ctx, logOf("ERROR a"), rules.MustCompile("error /ERROR/"), nil, Options{})
	require.NotNil(t, res.Failure)
	assert.True(t, res.Cancelled())
	assert.ErrorIs(t, res.Failure, context.Canceled)
	assert.NotEmpty(t, res.FailureMessage)
	assert.Zero(t, res.TotalLines)
}

// endlessLog yields "ERROR x" lines forever and cancels its context once
// enough bytes have been handed out.
type endlessLog struct {
	served int
	limit  int
	cancel context.CancelFunc
}

func (e *endlessLog) Read(p []byte) (int, error) {
	const line = "ERROR x\n"
	n := 0
	for n+len(line) <= len(p) {
		n += copy(p[n:], line)
	}
	e.served += n
	if e.served >= e.limit {
		e.cancel()
	}
	return n, nil
}

func TestRun_CancelledMidStreamKeepsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	res := Run(ctx, &endlessLog{limit: 4096, cancel: cancel}, rules.MustCompile("error /ERROR/"), &out, Options{})

	require.True(t, res.Cancelled())
	var ce *CancelledError
	require.ErrorAs(t, res.Failure, &ce)
	assert.Positive(t, res.TotalLines)
	assert.Equal(t, res.TotalLines, res.TotalErrors, "every processed line is counted")
	assert.Equal(t, res.TotalLines+1, ce.Line)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, res.TotalErrors, res.Sections[0].ErrorCount)
	assert.Contains(t, out.String(), `id="L1"`, "annotated output is flushed on cancellation")
}

type errReader struct {
	data []byte
	err  error
}

func (e *errReader) Read(p []byte) (int, error) {
	if len(e.data) == 0 {
		return 0, e.err
	}
	n := copy(p, e.data)
	e.data = e.data[n:]
	return n, nil
}

func TestRun_ReadError(t *testing.T) {
	src := &errReader{data: []byte("ERROR one\n"), err: errors.New("connection reset")}
	res := Run(context.Background(), src, rules.MustCompile("error /ERROR/"), nil, Options{})

	var se *ScanError
	require.ErrorAs(t, res.Failure, &se)
	assert.Equal(t, "read", se.Op)
	assert.False(t, res.Cancelled())
	assert.Equal(t, 1, res.TotalErrors)
	assert.Contains(t, res.FailureMessage, "connection reset")
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRun_WriteError(t *testing.T) {
	res := Run(context.Background(), logOf("ERROR a", "ok"), rules.MustCompile("error /ERROR/"), errWriter{}, Options{})

	var se *ScanError
	require.ErrorAs(t, res.Failure, &se)
	assert.Equal(t, "write", se.Op)
	assert.Equal(t, 1, res.TotalErrors)
}

func TestClassifyLog_Preconditions(t *testing.T) {
	_, err := ClassifyLog(context.Background(), logOf("x"), nil, nil, Options{})
	assert.Error(t, err)

	_, err = ClassifyLog(context.Background(), logOf("x"), rules.MustCompile("error /x/"), nil, Options{Charset: "no-such-charset"})
	assert.Error(t, err)
}

func TestRun_EmptyRuleSet(t *testing.T) {
	res, out := run(t, "", []string{"ERROR a", "WARN b"}, Options{})
	assert.Zero(t, res.TotalErrors+res.TotalWarnings)
	assert.Equal(t, 2, strings.Count(out, `class="ok"`))
}

type countingRecorder struct {
	metrics.NoopRecorder
	lines    int
	matches  map[string]int
	outcomes []metrics.RunOutcome
}

func (c *countingRecorder) AddLines(n int) { c.lines += n }
func (c *countingRecorder) AddMatches(cat string, n int) {
	if c.matches == nil {
		c.matches = map[string]int{}
	}
	c.matches[cat] += n
}
func (c *countingRecorder) IncRunOutcome(o metrics.RunOutcome) { c.outcomes = append(c.outcomes, o) }

func TestRun_RecordsMetrics(t *testing.T) {
	rec := &countingRecorder{}
	run(t, "error /E/\nwarning /W/", []string{"E", "W", "W", "x"}, Options{Recorder: rec})

	assert.Equal(t, 4, rec.lines)
	assert.Equal(t, 1, rec.matches["error"])
	assert.Equal(t, 2, rec.matches["warning"])
	assert.Equal(t, []metrics.RunOutcome{metrics.RunCompleted}, rec.outcomes)
}

func TestRun_ConcurrentRunsShareRuleSet(t *testing.T) {
	rs := rules.MustCompile("start /^=== /\nerror /E/")
	results := make(chan *ParseResult, 4)
	for i := 0; i < 4; i++ {
		go func(i int) {
			lines := []string{"=== s"}
			for j := 0; j <= i; j++ {
				lines = append(lines, "E")
			}
			results <- Run(context.Background(), logOf(lines...), rs, nil, Options{})
		}(i)
	}

	total := 0
	for i := 0; i < 4; i++ {
		r := <-results
		require.Len(t, r.Sections, 1)
		assert.Equal(t, r.TotalErrors, r.Sections[0].ErrorCount)
		total += r.TotalErrors
	}
	assert.Equal(t, 1+2+3+4, total)
}
