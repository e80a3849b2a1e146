package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultCharset is used when no charset is configured.
const DefaultCharset = "utf-8"

// DefaultMaxLineBytes caps the retained size of a single line.
const DefaultMaxLineBytes = 1024 * 1024

// Line is one decoded line of a log stream.
type Line struct {
	// Number is the 1-based line number in the stream.
	Number int

	// Text is the decoded line without its terminator.
	Text string

	// Truncated is set when the line exceeded the reader's limit.
	Truncated bool
}

// LookupCharset resolves a charset name (IANA or WHATWG label) to an encoding.
// An empty name resolves to UTF-8.
func LookupCharset(name string) (encoding.Encoding, error) {
	if name == "" {
		name = DefaultCharset
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", name, err)
	}
	return enc, nil
}

// LineReader reads a byte stream one decoded line at a time. Memory use is
// bounded by the line limit regardless of stream size; the excess of an
// over-long line is discarded. Malformed byte sequences decode to U+FFFD.
type LineReader struct {
	r       *bufio.Reader
	maxLine int
	lineNum int
}

// NewLineReader wraps r, decoding from charset into UTF-8.
// maxLineBytes <= 0 selects DefaultMaxLineBytes.
func NewLineReader(r io.Reader, charset string, maxLineBytes int) (*LineReader, error) {
	enc, err := LookupCharset(charset)
	if err != nil {
		return nil, err
	}
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}

	return &LineReader{
		r:       bufio.NewReaderSize(transform.NewReader(r, enc.NewDecoder()), 64*1024),
		maxLine: maxLineBytes,
	}, nil
}

// Next returns the next line. Returns io.EOF when the stream is exhausted.
func (lr *LineReader) Next(ctx context.Context) (*Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf []byte
	started := false
	truncated := false

	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			if err == io.EOF && started {
				break
			}
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading line %d: %w", lr.lineNum+1, err)
		}
		started = true

		if space := lr.maxLine - len(buf); len(chunk) > space {
			chunk = chunk[:space]
			truncated = true
		}
		buf = append(buf, chunk...)

		if !isPrefix {
			break
		}
	}

	// ReadLine only strips \r when \n follows; a CRLF log whose last line
	// lacks the newline still ends in \r.
	if n := len(buf); n > 0 && buf[n-1] == '\r' {
		if _, err := lr.r.Peek(1); err == io.EOF {
			buf = buf[:n-1]
		}
	}

	lr.lineNum++
	text := string(buf)
	if truncated {
		// The cut may have split a multi-byte rune.
		text = strings.ToValidUTF8(text, "")
	}

	return &Line{Number: lr.lineNum, Text: text, Truncated: truncated}, nil
}

// LineNumber returns the number of lines read so far.
func (lr *LineReader) LineNumber() int {
	return lr.lineNum
}
