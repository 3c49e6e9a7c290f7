package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const exit42 = `    .globl main
    .text
main:
    movl $42, %eax
    ret
    .section .note.GNU-stack,"",@progbits
`

func TestNewDefaults(t *testing.T) {
	if got := New("").CC; got != DefaultCC {
		t.Errorf("New(\"\").CC = %q, want %q", got, DefaultCC)
	}
	if got := New("clang").CC; got != "clang" {
		t.Errorf("New(\"clang\").CC = %q, want clang", got)
	}
}

func TestToolError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := error(&ToolError{Step: "link", Output: "undefined reference to `f'", Err: inner})
	if !strings.Contains(err.Error(), "link failed") || !strings.Contains(err.Error(), "undefined reference") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("ToolError does not unwrap to its cause")
	}
}

func TestLinkAndRun(t *testing.T) {
	tc := New("")
	if !tc.Available() {
		t.Skip("no C compiler on PATH")
	}
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "prog")
	if err := tc.Link(ctx, []string{exit42}, out); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	code, err := Run(ctx, out)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
}

func TestAssembleRejectsBadInput(t *testing.T) {
	tc := New("")
	if !tc.Available() {
		t.Skip("no C compiler on PATH")
	}
	obj := filepath.Join(t.TempDir(), "bad.o")
	err := tc.Assemble(context.Background(), "    frobnicate %eax\n", obj)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if toolErr.Step != "assemble" {
		t.Errorf("Step = %q, want assemble", toolErr.Step)
	}
}

func TestPreprocess(t *testing.T) {
	tc := New("")
	if !tc.Available() {
		t.Skip("no C compiler on PATH")
	}
	path := filepath.Join(t.TempDir(), "p.c")
	src := "#define ANSWER 42\nint main(void) { return ANSWER; }\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := tc.Preprocess(context.Background(), path)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	if !strings.Contains(got, "return 42;") {
		t.Errorf("macro not expanded:\n%s", got)
	}
}
