package output

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// annotatedStyle colors annotated lines by the category class the engine
// assigns them.
const annotatedStyle = `<style>
.error { color: #c00; font-weight: bold; }
.warning { color: #b60; }
.info { color: #06c; }
.debug { color: #777; }
.start { background: #eef; font-weight: bold; }
pre { margin: 0; }
body { font-family: monospace; }
</style>`

// WriteAnnotatedHeader writes the prologue of a standalone annotated log
// document. The engine's annotated lines follow, then WriteAnnotatedFooter.
func WriteAnnotatedHeader(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n%s\n</head>\n<body>\n",
		html.EscapeString(title), annotatedStyle)
	return err
}

// WriteAnnotatedFooter closes a document started with WriteAnnotatedHeader.
func WriteAnnotatedFooter(w io.Writer) error {
	_, err := io.WriteString(w, "</body>\n</html>\n")
	return err
}
