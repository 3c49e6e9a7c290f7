package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type testErr struct {
	span Span
	msg  string
}

func (e *testErr) Error() string   { return e.span.String() + ": " + e.msg }
func (e *testErr) Span() Span      { return e.span }
func (e *testErr) Message() string { return e.msg }

func TestRender(t *testing.T) {
	src := "int main() {\n    return y;\n}\n"
	tests := []struct {
		name     string
		span     Span
		expected string
	}{
		{
			name: "Single Column",
			span: Span{StartLine: 2, StartCol: 12, EndLine: 2, EndCol: 13},
			expected: "prog.c:2:12: error: undeclared identifier \"y\"\n" +
				"2 |     return y;\n" +
				"  |            ^\n",
		},
		{
			name: "Wide Span",
			span: Span{StartLine: 2, StartCol: 5, EndLine: 2, EndCol: 11},
			expected: "prog.c:2:5: error: undeclared identifier \"y\"\n" +
				"2 |     return y;\n" +
				"  |     ^^^^^^\n",
		},
		{
			name: "Multi Line Span Stops At Line End",
			span: Span{StartLine: 1, StartCol: 12, EndLine: 3, EndCol: 2},
			expected: "prog.c:1:12: error: undeclared identifier \"y\"\n" +
				"1 | int main() {\n" +
				"  |            ^\n",
		},
		{
			name:     "No Span",
			span:     Span{},
			expected: "prog.c: error: undeclared identifier \"y\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render("prog.c", src, tt.span, "error", `undeclared identifier "y"`)
			if got != tt.expected {
				t.Errorf("Render mismatch\n got: %q\nwant: %q", got, tt.expected)
			}
		})
	}
}

func TestRenderKeepsTabs(t *testing.T) {
	src := "\tint x = @;"
	got := Render("t.c", src, Span{StartLine: 1, StartCol: 10, EndLine: 1, EndCol: 11}, "error", "unexpected character '@'")
	want := "t.c:1:10: error: unexpected character '@'\n1 | \tint x = @;\n  | \t        ^\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, LogLevelError, false)

	r.Info("compiling %s", "a.c")
	r.Warn("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below the log level, got %q", buf.String())
	}

	err := &testErr{span: Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 4}, msg: "bad"}
	r.CompileError("a.c", "foo;", err)
	out := buf.String()
	if !strings.Contains(out, "a.c:1:1: error: bad") {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "  | ^^^") {
		t.Errorf("missing caret line in %q", out)
	}

	buf.Reset()
	r.CompileError("a.c", "foo;", errors.New("plain failure"))
	if got := buf.String(); got != "a.c: error: plain failure\n" {
		t.Errorf("unexpected plain error output %q", got)
	}

	if r.ErrorCount() != 2 {
		t.Errorf("ErrorCount = %d, want 2", r.ErrorCount())
	}
}

func TestReporterSilent(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, LogLevelSilent, false)
	if r.LogLevel() != LogLevelSilent {
		t.Errorf("LogLevel = %s, want silent", r.LogLevel())
	}
	r.Fatal("no input files")
	if buf.Len() != 0 {
		t.Errorf("silent reporter wrote %q", buf.String())
	}
	if r.ErrorCount() != 1 {
		t.Errorf("silent reporter should still count errors")
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, name := range []string{"silent", "error", "warn", "verbose", "VERBOSE"} {
		if _, err := ParseLogLevel(name); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
