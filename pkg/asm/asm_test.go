package asm

import (
	"reflect"
	"strings"
	"testing"
)

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"main", true},
		{"_start", true},
		{".L12", true},
		{"count.3", true},
		{"1abc", false},
		{"", false},
		{"ab-c", false},
	}
	for _, tc := range tests {
		if got := isIdentifier(tc.input); got != tc.want {
			t.Errorf("isIdentifier(%q) = %v; want %v", tc.input, got, tc.want)
		}
	}

	splitTests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"%rax", []string{"%rax"}},
		{"$1, %eax", []string{"$1", "%eax"}},
		{"%rax, 8(%rsp)", []string{"%rax", "8(%rsp)"}},
		{"(%rax,%rcx), %rdx", []string{"(%rax,%rcx)", "%rdx"}},
		{`.note.GNU-stack,"",@progbits`, []string{".note.GNU-stack", `""`, "@progbits"}},
	}
	for _, tc := range splitTests {
		if got := splitOperands(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitOperands(%q) = %q; want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    parsedLine
		wantErr bool
	}{
		{
			"    movl $5, %eax",
			parsedLine{lineNo: 1, mnemonic: "movl", operands: []string{"$5", "%eax"}},
			false,
		},
		{
			"    movq %rax, %rcx  # save",
			parsedLine{lineNo: 1, mnemonic: "movq", operands: []string{"%rax", "%rcx"}},
			false,
		},
		{
			"main:",
			parsedLine{lineNo: 1, labels: []string{"main"}},
			false,
		},
		{
			".L1: .L2: ret",
			parsedLine{lineNo: 1, labels: []string{".L1", ".L2"}, mnemonic: "ret"},
			false,
		},
		{
			"    # while (x < 3)",
			parsedLine{lineNo: 1},
			false,
		},
		{
			`    .section .note.GNU-stack,"",@progbits`,
			parsedLine{lineNo: 1, mnemonic: ".section", operands: []string{".note.GNU-stack", `""`, "@progbits"}},
			false,
		},
		{
			"1bad: ret",
			parsedLine{lineNo: 1},
			true,
		},
	}

	for _, tc := range tests {
		got, err := parseLine(tc.line, 1)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseLine(%q) error = %v, wantErr %v", tc.line, err, tc.wantErr)
			continue
		}
		if tc.wantErr {
			continue
		}
		if got.mnemonic != tc.want.mnemonic {
			t.Errorf("parseLine(%q) mnemonic = %q, want %q", tc.line, got.mnemonic, tc.want.mnemonic)
		}
		if !reflect.DeepEqual(got.labels, tc.want.labels) {
			t.Errorf("parseLine(%q) labels = %v, want %v", tc.line, got.labels, tc.want.labels)
		}
		if !reflect.DeepEqual(got.operands, tc.want.operands) {
			t.Errorf("parseLine(%q) operands = %v, want %v", tc.line, got.operands, tc.want.operands)
		}
	}
}

const validListing = `
    .globl main
    .text
    .type main, @function
main:
    pushq %rbp
    movq %rsp, %rbp
    subq $16, %rsp
    movl $0, -4(%rbp)
.L0:
    movl -4(%rbp), %eax
    cmpl $10, %eax
    je .L1
    movl -4(%rbp), %eax
    pushq %rax
    movl $1, %eax
    movq %rax, %rcx
    popq %rax
    addl %ecx, %eax
    movl %eax, -4(%rbp)
    jmp .L0
.L1:
    call helper
    call puts@PLT
    movq %rbp, %rsp
    popq %rbp
    ret
    .size main, .-main
helper:
    ret

    .bss
    .align 8
    .type count.1, @object
    .size count.1, 8
count.1:
    .zero 8
    .section .note.GNU-stack,"",@progbits
`

func TestCheck(t *testing.T) {
	listing, err := Check(validListing)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	for _, lbl := range []string{"main", ".L0", ".L1", "helper", "count.1"} {
		if _, ok := listing.Labels[lbl]; !ok {
			t.Errorf("label %q not recorded", lbl)
		}
	}
	if got := listing.Count("pushq"); got != 2 {
		t.Errorf("Count(pushq) = %d, want 2", got)
	}
	if got := listing.Count("call"); got != 2 {
		t.Errorf("Count(call) = %d, want 2", got)
	}
	if got := listing.Labels[".L0"]; got != 10 {
		t.Errorf(".L0 defined on line %d, want 10", got)
	}
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr string
	}{
		{"Unknown Instruction", "    frob %eax", "unknown instruction"},
		{"Unknown Directive", "    .ascii \"x\"", "unknown directive"},
		{"Duplicate Label", ".L1:\n    ret\n.L1:\n    ret", "duplicate label"},
		{"Undefined Jump Target", "    jmp .L9", "undefined label"},
		{"Undefined Local Call", "    call missing", "call to undefined label"},
		{"Missing Operand", "    movl $1", "expects 2 operands"},
		{"Extra Operand", "    ret %rax", "expects 0 operands"},
		{"Store To Immediate", "    movl %eax, $1", "cannot write to an immediate"},
		{"Bad Label", "9lives:\n    ret", "invalid label"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Check(tc.code)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"    ret", "    ret"},
		{"    ret # done", "    ret "},
		{"# whole line", ""},
		{`    .section .x,"#",@progbits`, `    .section .x,"#",@progbits`},
	}
	for _, tc := range tests {
		if got := stripComments(tc.input); got != tc.want {
			t.Errorf("stripComments(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
