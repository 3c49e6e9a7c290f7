package compiler

import (
	"errors"
	"strings"
	"testing"

	"lilcc/pkg/report"
)

// assertContains checks if the generated code contains the expected substring.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("Expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("Expected code not to contain %q.\nCode:\n%s", unexpected, code)
	}
}

func TestGenerate_Return(t *testing.T) {
	code := compileChecked(t, "int main(void) { return 7; }")

	assertContains(t, code, "    .globl main\n")
	assertContains(t, code, "    .type main, @function\n")
	assertContains(t, code, "main:\n    pushq %rbp\n    movq %rsp, %rbp\n")
	assertContains(t, code, "    movl $7, %eax\n    movq %rbp, %rsp\n    popq %rbp\n    ret\n")
	assertContains(t, code, "    .size main, .-main\n")
	if !strings.HasSuffix(code, "    .section .note.GNU-stack,\"\",@progbits\n") {
		t.Errorf("missing trailing GNU-stack note:\n%s", code)
	}
	// No locals, no frame adjustment.
	assertNotContains(t, code, "subq $")
}

func TestGenerate_GlobalVars(t *testing.T) {
	code := compileChecked(t, `
	int zero;
	int answer = 42;
	long big = 5000000000;
	static int hidden = 3;
	extern int elsewhere;
	int main(void) { return answer + hidden + elsewhere; }
	`)

	assertContains(t, code, "    .globl zero\n    .bss\n    .align 4\n    .type zero, @object\n    .size zero, 4\nzero:\n    .zero 4\n")
	assertContains(t, code, "    .globl answer\n    .data\n    .align 4\n")
	assertContains(t, code, "answer:\n    .long 42\n")
	assertContains(t, code, "    .align 8\n    .type big, @object\n    .size big, 8\nbig:\n    .quad 5000000000\n")
	assertContains(t, code, "hidden:\n    .long 3\n")
	assertNotContains(t, code, ".globl hidden")
	assertNotContains(t, code, "elsewhere:")
	assertContains(t, code, "movl answer(%rip), %eax")
	assertContains(t, code, "movl elsewhere(%rip), %eax")
}

func TestGenerate_Locals(t *testing.T) {
	code := compileChecked(t, `
	int main(void) {
		int a = 1;
		long b = 2;
		b = a;
		return b;
	}
	`)

	assertContains(t, code, "    subq $16, %rsp\n")
	assertContains(t, code, "    movl %eax, -4(%rbp)\n")
	assertContains(t, code, "    movq %rax, -16(%rbp)\n")
	// int to long widening on assignment.
	assertContains(t, code, "    movl -4(%rbp), %eax\n    movslq %eax, %rax\n    movq %rax, -16(%rbp)\n")
}

func TestGenerate_Expressions(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains []string
	}{
		{"add", "return a + b;", []string{"pushq %rax", "movq %rax, %rcx", "popq %rax", "addl %ecx, %eax"}},
		{"sub", "return a - b;", []string{"subl %ecx, %eax"}},
		{"mul", "return a * b;", []string{"imull %ecx, %eax"}},
		{"div", "return a / b;", []string{"cltd", "idivl %ecx"}},
		{"mod", "return a % b;", []string{"cltd", "idivl %ecx", "movl %edx, %eax"}},
		{"long div", "return l / a;", []string{"movslq %eax, %rax", "cqto", "idivq %rcx"}},
		{"long mod", "return l % a;", []string{"cqto", "movq %rdx, %rax"}},
		{"neg", "return -a;", []string{"negl %eax"}},
		{"not", "return ~l;", []string{"notq %rax"}},
		{"logical not", "return !l;", []string{"cmpq $0, %rax", "sete %al", "movzbl %al, %eax"}},
		{"less", "return a < b;", []string{"cmpl %ecx, %eax", "setl %al"}},
		{"less equal", "return a <= b;", []string{"setle %al"}},
		{"greater", "return a > b;", []string{"setg %al"}},
		{"greater equal", "return a >= b;", []string{"setge %al"}},
		{"equal", "return a == b;", []string{"sete %al"}},
		{"not equal", "return l != a;", []string{"cmpq %rcx, %rax", "setne %al"}},
		{"and", "return a && b;", []string{"je .L0", "movl $1, %eax", "jmp .L1", "movl $0, %eax"}},
		{"or", "return a || b;", []string{"jne .L0", "movl $0, %eax", "movl $1, %eax"}},
		{"ternary", "return a ? l : b;", []string{"je .L0", "movq -16(%rbp), %rax", "movslq %eax, %rax"}},
		{"cast", "return (int) l;", []string{"movq -16(%rbp), %rax"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "int main(void) { int a = 7; int b = 2; long l = 9; " + tt.body + " }"
			code := compileChecked(t, src)
			for _, want := range tt.contains {
				assertContains(t, code, want)
			}
		})
	}
}

func TestGenerate_Calls(t *testing.T) {
	code := compileChecked(t, `
	int ext(int a, long b);
	long many(long a, long b, long c, long d, long e, long f, long g, long h) { return h; }
	int main(void) {
		many(1, 2, 3, 4, 5, 6, 7, 8);
		return ext(1, 2);
	}
	`)

	// Two stack arguments keep %rsp aligned without padding.
	assertContains(t, code, "    subq $16, %rsp\n")
	assertContains(t, code, "    movq %rax, 48(%rsp)\n")
	assertContains(t, code, "    movq %rax, 56(%rsp)\n")
	assertContains(t, code, "    popq %r9\n    popq %r8\n    popq %rcx\n    popq %rdx\n    popq %rsi\n    popq %rdi\n    call many\n    addq $16, %rsp\n")
	// Stack parameters are read above the return address.
	assertContains(t, code, "    movq 24(%rbp), %rax\n")
	// Undefined functions go through the PLT.
	assertContains(t, code, "    call ext@PLT\n")
	// Register parameters are spilled in the prologue.
	assertContains(t, code, "    movq %rdi, -8(%rbp)\n")
	assertContains(t, code, "    movq %r9, -48(%rbp)\n")
}

func TestGenerate_OddStackArgsPad(t *testing.T) {
	code := compileChecked(t, `
	int seven(int a, int b, int c, int d, int e, int f, int g) { return g; }
	int main(void) { return seven(1, 2, 3, 4, 5, 6, 7); }
	`)
	// One 8-byte stack argument plus 8 bytes of padding.
	assertContains(t, code, "    subq $16, %rsp\n")
	assertContains(t, code, "    call seven\n    addq $16, %rsp\n")
	assertContains(t, code, "    movl 16(%rbp), %eax\n")
}

func TestGenerate_StaticLocal(t *testing.T) {
	code := compileChecked(t, `
	int tick(void) { static int n = 5; n = n + 1; return n; }
	int main(void) { return tick(); }
	`)
	assertContains(t, code, "n.1:\n    .long 5\n")
	assertContains(t, code, "movl n.1(%rip), %eax")
	assertNotContains(t, code, ".globl n.1")
}

func TestGenerate_VoidFunction(t *testing.T) {
	code := compileChecked(t, `
	int g;
	void set(void) { g = 1; }
	int main(void) { set(); return g; }
	`)
	start := strings.Index(code, "set:")
	end := strings.Index(code, ".size set")
	if start < 0 || end < 0 {
		t.Fatalf("set not emitted:\n%s", code)
	}
	// No implicit return value in a void function.
	assertNotContains(t, code[start:end], "movl $0, %eax")
}

func TestDeadCodeElimination(t *testing.T) {
	code := compileChecked(t, `
	static int unused(void) { return 1; }
	static int used(void) { return 2; }
	static int chained(void) { return used(); }
	int visible(void) { return 3; }
	int main(void) { return chained(); }
	`)
	assertNotContains(t, code, "unused:")
	assertContains(t, code, "\nused:")
	assertContains(t, code, "chained:")
	assertContains(t, code, "visible:")
}

func TestGenerate_Deterministic(t *testing.T) {
	src := `
	int a = 1; long b = 2; static int c; int d;
	static int helper(int x) { static int calls; calls = calls + 1; return x + calls; }
	int main(void) {
		int s = 0;
		for (int i = 0; i < 4; i = i + 1) s = s + helper(i);
		return s + a + b + c + d;
	}
	`
	first, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Compile(src)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if again != first {
			t.Fatalf("output differs between runs:\n%s\n---\n%s", first, again)
		}
	}
}

func TestGenerate_UnresolvedTree(t *testing.T) {
	// A tree that skipped the resolver must fail cleanly.
	tokens, err := Lex("int main(void) { return x; }")
	if err != nil {
		t.Fatal(err)
	}
	prog, err := Parse(tokens)
	if err != nil {
		t.Fatal(err)
	}
	main := prog.Decls[0].(*FuncDecl)
	main.Body.Stmts[0].(*ReturnStmt).Value.setType(Int)

	syms := NewSymbolTable()
	main.Sym, _ = syms.DeclareFunc("main", Int, nil, StorageGlobal, true, report.Span{})

	_, err = Generate(prog, syms)
	var cgErr *CodegenError
	if !errors.As(err, &cgErr) {
		t.Fatalf("expected *CodegenError, got %v", err)
	}
}
