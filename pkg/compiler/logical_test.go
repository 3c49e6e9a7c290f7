package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"lilcc/pkg/asm"
	"lilcc/pkg/toolchain"
)

// compileChecked compiles source and runs the listing checker over the result.
func compileChecked(t *testing.T, source string) string {
	t.Helper()
	assembly, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if _, err := asm.Check(assembly); err != nil {
		t.Fatalf("Check failed: %v\nAssembly:\n%s", err, assembly)
	}
	return assembly
}

// runCode compiles, links and runs source, returning the exit status.
// It skips the test when no C compiler is available.
func runCode(t *testing.T, source string) int {
	t.Helper()
	tc := toolchain.New("")
	if !tc.Available() {
		t.Skip("no C compiler on PATH")
	}
	assembly := compileChecked(t, source)

	ctx := context.Background()
	exe := filepath.Join(t.TempDir(), "prog")
	if err := tc.Link(ctx, []string{assembly}, exe); err != nil {
		t.Fatalf("Link failed: %v\nAssembly:\n%s", err, assembly)
	}
	code, err := toolchain.Run(ctx, exe)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return code
}

func TestLogicalAnd(t *testing.T) {
	tests := []struct {
		a, b     int
		expected int
	}{
		{0, 0, 0},
		{0, 1, 0},
		{1, 0, 0},
		{1, 1, 1},
		{10, 20, 1}, // non-zero treated as true
	}

	for _, tt := range tests {
		src := fmt.Sprintf(`
		int main() {
			int a = %d;
			int b = %d;
			return a && b;
		}
		`, tt.a, tt.b)
		if got := runCode(t, src); got != tt.expected {
			t.Errorf("%d && %d: expected %d, got %d", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestLogicalOr(t *testing.T) {
	tests := []struct {
		a, b     int
		expected int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 1},
		{-5, 0, 1},
	}

	for _, tt := range tests {
		src := fmt.Sprintf(`
		int main() {
			int a = %d;
			int b = %d;
			return a || b;
		}
		`, tt.a, tt.b)
		if got := runCode(t, src); got != tt.expected {
			t.Errorf("%d || %d: expected %d, got %d", tt.a, tt.b, tt.expected, got)
		}
	}
}

func TestNot(t *testing.T) {
	tests := []struct {
		val      int
		expected int
	}{
		{0, 1},
		{1, 0},
		{42, 0},
	}
	for _, tt := range tests {
		src := fmt.Sprintf(`
		int main() {
			int a = %d;
			return !a;
		}
		`, tt.val)
		if got := runCode(t, src); got != tt.expected {
			t.Errorf("!%d: expected %d, got %d", tt.val, tt.expected, got)
		}
	}
}

func TestShortCircuitAnd(t *testing.T) {
	// The right side assigns x; it must not run.
	src := `
	int main() {
		int x = 0;
		0 && (x = 1);
		return x;
	}
	`
	if got := runCode(t, src); got != 0 {
		t.Errorf("short-circuit &&: expected 0, got %d", got)
	}
}

func TestShortCircuitOr(t *testing.T) {
	src := `
	int main() {
		int x = 0;
		1 || (x = 1);
		return x;
	}
	`
	if got := runCode(t, src); got != 0 {
		t.Errorf("short-circuit ||: expected 0, got %d", got)
	}
}

func TestShortCircuitSkipsCall(t *testing.T) {
	src := `
	int hits = 0;
	int touch(void) { hits = hits + 1; return 1; }
	int main(void) {
		int a = 0;
		a && touch();
		1 || touch();
		a || touch();
		return hits;
	}
	`
	if got := runCode(t, src); got != 1 {
		t.Errorf("expected one call to touch, got %d", got)
	}
}

func TestLogicalPrecedence(t *testing.T) {
	tests := []struct {
		expr     string
		expected int
	}{
		{"1 || 0 && 0", 1}, // && binds tighter
		{"(1 || 0) && 0", 0},
		{"0 && 1 || 1", 1},
		{"!0 && !0", 1},
	}
	for _, tt := range tests {
		src := fmt.Sprintf("int main() { return %s; }", tt.expr)
		if got := runCode(t, src); got != tt.expected {
			t.Errorf("%s: expected %d, got %d", tt.expr, tt.expected, got)
		}
	}
}

func TestExternWithInitializer(t *testing.T) {
	src := `
	extern int x = 5;
	int main(void) { return x; }
	`
	if asm := compileChecked(t, src); !strings.Contains(asm, ".globl x") || !strings.Contains(asm, "x:\n    .long 5") {
		t.Errorf("x not defined in .data:\n%s", asm)
	}
	if got := runCode(t, src); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}
