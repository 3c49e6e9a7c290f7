package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Render formats a diagnostic for the text covered by span in src:
//
//	prog.c:3:12: error: undeclared identifier "y"
//	3 | int main() { return y; }
//	  |                     ^
//
// A zero span renders only the header line.
func Render(file, src string, span Span, label, msg string) string {
	var sb strings.Builder
	if span.IsZero() {
		fmt.Fprintf(&sb, "%s: %s: %s\n", file, label, msg)
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s:%d:%d: %s: %s\n", file, span.StartLine, span.StartCol, label, msg)

	lines := strings.Split(src, "\n")
	if span.StartLine > len(lines) {
		return sb.String()
	}
	line := strings.TrimRight(lines[span.StartLine-1], "\r")

	gutter := len(strconv.Itoa(span.StartLine))
	fmt.Fprintf(&sb, "%-"+strconv.Itoa(gutter)+"d | %s\n", span.StartLine, line)
	sb.WriteString(strings.Repeat(" ", gutter))
	sb.WriteString(" | ")
	sb.WriteString(caretLine(line, span))
	sb.WriteByte('\n')
	return sb.String()
}

// caretLine underlines the span within line. Tabs before the start column
// are copied so the carets line up under the source text.
func caretLine(line string, span Span) string {
	runes := []rune(line)
	start := span.StartCol - 1
	if start > len(runes) {
		start = len(runes)
	}

	end := span.EndCol - 1
	if span.EndLine != span.StartLine || end > len(runes) {
		end = len(runes)
	}

	var sb strings.Builder
	for _, r := range runes[:start] {
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	width := end - start
	if width < 1 {
		width = 1
	}
	sb.WriteString(strings.Repeat("^", width))
	return sb.String()
}
