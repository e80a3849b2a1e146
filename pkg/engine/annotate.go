package engine

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/ccollicutt/logparse/pkg/rules"
)

// Annotator renders one annotated output line per input line. Every line is
// HTML-escaped, tagged with its category and addressable by its anchor.
type Annotator struct {
	Preformatted bool
}

// Format returns the annotated form of text, without a trailing newline.
func (a Annotator) Format(lineNumber int, category rules.Category, text string) string {
	var sb strings.Builder
	escaped := html.EscapeString(text)
	anchor := AnchorID(lineNumber)

	sb.Grow(len(escaped) + 48)
	if a.Preformatted {
		sb.WriteString(`<pre id="`)
		sb.WriteString(anchor)
		sb.WriteString(`" class="`)
		sb.WriteString(string(category))
		sb.WriteString(`">`)
		sb.WriteString(escaped)
		sb.WriteString(`</pre>`)
		return sb.String()
	}

	sb.WriteString(`<span id="`)
	sb.WriteString(anchor)
	sb.WriteString(`" class="`)
	sb.WriteString(string(category))
	sb.WriteString(`">`)
	sb.WriteString(escaped)
	sb.WriteString(`</span><br/>`)
	return sb.String()
}
