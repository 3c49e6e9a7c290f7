package compiler

import (
	"errors"
	"testing"
)

// Whole programs with known exit statuses.
func TestProgramExitStatus(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want int
	}{
		{"arithmetic", "int main(){ return 1+2*3; }", 7},
		{"promotion", "int main(){ long a = 5; int b = 2; return a>b; }", 1},
		{"short circuit", "int main(){ int x=0; return x && (1/x); }", 0},
		{"inner shadow", "int main(){ int x=1; { int x=2; return x; } }", 2},
		{"outer after shadow", "int main(){ int x=1; { int x=2; x = x + 1; } return x; }", 1},
		{"ternary true", "int main(){ return 1 ? 10 : 20; }", 10},
		{"ternary false", "int main(){ return 0 ? 10 : 20; }", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCode(t, tt.src); got != tt.want {
				t.Errorf("exit status %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDuplicateDeclarationProducesNoOutput(t *testing.T) {
	asm, err := Compile("int main(){ int x; int x; return 0; }")
	var symErr *SymbolError
	if !errors.As(err, &symErr) || symErr.Kind != Redeclared {
		t.Fatalf("expected a Redeclared SymbolError, got %v", err)
	}
	if asm != "" {
		t.Errorf("assembly produced for a failing unit:\n%s", asm)
	}
}

func TestShadowedNamesResolveToDistinctSymbols(t *testing.T) {
	prog := parseSource(t, "int main(){ int x=1; { int x=2; return x; } return x; }")
	if _, err := Resolve(prog); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	body := prog.Decls[0].(*FuncDecl).Body.Stmts
	inner := body[1].(*BlockStmt).Stmts[1].(*ReturnStmt).Value.(*VarRef)
	outer := body[2].(*ReturnStmt).Value.(*VarRef)
	if inner.Sym == outer.Sym {
		t.Errorf("inner and outer x share symbol %d", inner.Sym)
	}
}
