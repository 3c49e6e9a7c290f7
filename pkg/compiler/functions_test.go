package compiler

import (
	"errors"
	"testing"
)

func resolveSource(t *testing.T, src string) (*Program, *SymbolTable, error) {
	t.Helper()
	prog := parseSource(t, src)
	syms, err := Resolve(prog)
	return prog, syms, err
}

func TestResolve(t *testing.T) {
	src := `
	int g = 5;
	long twice(long v);
	int main(void) {
		int x = 1;
		{
			long x = 2;
			x = twice(x);
		}
		return x + g;
	}
	long twice(long v) { return v + v; }
	`
	prog, syms, err := resolveSource(t, src)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	main := prog.Decls[2].(*FuncDecl)
	outerX := main.Body.Stmts[0].(*DeclStmt).Decls[0]
	inner := main.Body.Stmts[1].(*BlockStmt)
	innerX := inner.Stmts[0].(*DeclStmt).Decls[0]
	assign := inner.Stmts[1].(*ExprStmt).Expr.(*Assign)
	ret := main.Body.Stmts[2].(*ReturnStmt).Value.(*BinaryOp)

	if outerX.Sym == innerX.Sym {
		t.Fatal("inner x did not get its own symbol")
	}
	if assign.Target.Sym != innerX.Sym {
		t.Error("assignment in the inner block does not bind to the inner x")
	}
	if ret.Left.(*VarRef).Sym != outerX.Sym {
		t.Error("return does not bind to the outer x")
	}
	if syms.Symbol(ret.Right.(*VarRef).Sym).Storage != StorageGlobal {
		t.Error("g does not bind to the global")
	}

	call := assign.Value.(*Call)
	twice := syms.Symbol(call.Sym)
	if twice.Kind != KindFunc || !twice.Defined {
		t.Errorf("twice = %+v, want a defined function", *twice)
	}
	if main := syms.Symbol(main.Sym); main.Frame != 16 {
		t.Errorf("main frame = %d, want 16", main.Frame)
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  SymbolErrorKind
	}{
		{"Undeclared variable", "int main() { return y; }", Undeclared},
		{"Undeclared function", "int main() { return f(); }", Undeclared},
		{"Out of scope", "int main() { { int x = 1; } return x; }", Undeclared},
		{"For variable scope", "int main() { for (int i = 0; i < 3; i = i + 1) ; return i; }", Undeclared},
		{"Redeclared local", "int main() { int x; int x; return 0; }", Redeclared},
		{"Param and local", "int f(int a) { int a; return a; }", Redeclared},
		{"Duplicate param", "int f(int a, int a) { return a; }", Redeclared},
		{"Function redefinition", "int f() { return 1; } int f() { return 2; }", Redeclared},
		{"Conflicting prototype", "int f(int a); long f(int a) { return a; }", Redeclared},
		{"Too many args", "int f(int a); int main() { return f(1, 2); }", ArityMismatch},
		{"Too few args", "int f(int a, int b); int main() { return f(1); }", ArityMismatch},
		{"Call a variable", "int x; int main() { return x(); }", NotAFunction},
		{"Function as value", "int f(void); int main() { return f + 1; }", NotAVariable},
		{"Break outside loop", "int main() { break; }", BreakOutsideLoop},
		{"Continue outside loop", "int main() { if (1) continue; }", ContinueOutsideLoop},
		{"Non-constant global", "int a = 1; int b = a + 1;", InvalidInitializer},
		{"Non-constant static", "int main() { int x = 1; static int y = x; return y; }", InvalidInitializer},
		{"Extern with initializer", "int main() { extern int g = 1; return g; }", InvalidInitializer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := resolveSource(t, tt.input)
			var symErr *SymbolError
			if !errors.As(err, &symErr) {
				t.Fatalf("expected *SymbolError, got %v", err)
			}
			if symErr.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", symErr.Kind, tt.kind, err)
			}
		})
	}
}

func TestResolveAccepts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"Shadow in nested block", "int main() { int x = 1; { int x = 2; } return x; }"},
		{"Shadow a global", "int x; int main() { int x = 3; return x; }"},
		{"Self in initializer", "int main() { int x = x; return x; }"},
		{"Repeated prototypes", "int f(int a); int f(int b); int f(int c) { return c; }"},
		{"Tentative globals", "int g; int g; int g = 3; extern int g;"},
		{"Block extern", "int main() { extern int g; return g; } int g = 4;"},
		{"Break in nested loop body", "int main() { while (1) { if (1) break; } return 0; }"},
		{"Continue in do", "int main() { do { continue; } while (0); return 0; }"},
		{"Recursion", "int fact(int n) { return n < 2 ? 1 : n * fact(n - 1); }"},
		{"Constant global expression", "long big = (long) 1 * 3000000000L + -2;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := resolveSource(t, tt.input); err != nil {
				t.Errorf("Resolve failed: %v", err)
			}
		})
	}
}

func TestFunctions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{
			name:     "Simple call",
			input:    "int seven(void) { return 7; } int main(void) { return seven(); }",
			expected: 7,
		},
		{
			name:     "Arguments",
			input:    "int sub(int a, int b) { return a - b; } int main(void) { return sub(10, 3); }",
			expected: 7,
		},
		{
			name:     "Recursion",
			input:    "int fact(int n) { if (n < 2) return 1; return n * fact(n - 1); } int main(void) { return fact(5); }",
			expected: 120,
		},
		{
			name: "Eight arguments",
			input: `
			int pick(int a, int b, int c, int d, int e, int f, int g, int h) {
				return a + 2*b + 3*c + 4*d + 5*e + 6*f + 7*g + 8*h;
			}
			int main(void) { return pick(1, 1, 1, 1, 1, 1, 1, 2); }`,
			expected: 44,
		},
		{
			name: "Seven arguments with nested calls",
			input: `
			long sum7(long a, long b, long c, long d, long e, long f, long g) {
				return a + b + c + d + e + f + g;
			}
			int id(int x) { return x; }
			int main(void) { return sum7(id(1), 2, 3, 4, 5, 6, id(7) + sum7(0, 0, 0, 0, 0, 0, 1)); }`,
			expected: 29,
		},
		{
			name:     "Forward declaration",
			input:    "int later(int x); int main(void) { return later(4); } int later(int x) { return x * 10; }",
			expected: 40,
		},
		{
			name:     "Static function",
			input:    "static int hidden(void) { return 9; } int main(void) { return hidden(); }",
			expected: 9,
		},
		{
			name: "Static local persists",
			input: `
			int counter(void) { static int n = 0; n = n + 1; return n; }
			int main(void) { counter(); counter(); return counter(); }`,
			expected: 3,
		},
		{
			name:     "Argument conversion",
			input:    "long widen(long v) { return v; } int main(void) { int x = -1; return widen(x) == -1; }",
			expected: 1,
		},
		{
			name:     "Void function side effect",
			input:    "int g; void set(int v) { g = v; } int main(void) { set(12); return g; }",
			expected: 12,
		},
		{
			name:     "Falling off the end",
			input:    "int main(void) { int x = 3; }",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.input); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
