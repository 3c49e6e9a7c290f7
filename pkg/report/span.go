// Package report renders compiler diagnostics and progress messages.
package report

import "fmt"

// Span is a range of source text. Lines and columns are 1-based; EndCol is
// one past the last column covered, so a single character at column 5 is
// {StartCol: 5, EndCol: 6}. Spans are only used for diagnostics.
type Span struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

// Over returns a span covering start through end.
func Over(start, end Span) Span {
	return Span{
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// IsZero reports whether the span carries no position.
func (s Span) IsZero() bool {
	return s.StartLine == 0
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
}

// Spanned is implemented by every error a compiler stage can raise. Message
// is the bare description without position information.
type Spanned interface {
	error
	Span() Span
	Message() string
}
