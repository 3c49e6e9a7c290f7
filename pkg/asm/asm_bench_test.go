package asm

import (
	"fmt"
	"strings"
	"testing"
)

// largeListing repeats the loop body of validListing under fresh labels to
// approximate the output for a unit with many functions.
func largeListing(funcs int) string {
	var sb strings.Builder
	for i := 0; i < funcs; i++ {
		fmt.Fprintf(&sb, "    .globl f%d\n    .text\nf%d:\n", i, i)
		sb.WriteString("    pushq %rbp\n    movq %rsp, %rbp\n    subq $16, %rsp\n")
		fmt.Fprintf(&sb, ".L%d:\n", 2*i)
		sb.WriteString("    movl -4(%rbp), %eax\n    cmpl $10, %eax\n")
		fmt.Fprintf(&sb, "    je .L%d\n", 2*i+1)
		sb.WriteString("    pushq %rax\n    movl $1, %eax\n    movq %rax, %rcx\n    popq %rax\n")
		sb.WriteString("    addl %ecx, %eax\n    movl %eax, -4(%rbp)\n")
		fmt.Fprintf(&sb, "    jmp .L%d\n.L%d:\n", 2*i, 2*i+1)
		sb.WriteString("    movq %rbp, %rsp\n    popq %rbp\n    ret\n")
	}
	return sb.String()
}

func BenchmarkCheck_Small(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Check(validListing); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCheck_Large(b *testing.B) {
	src := largeListing(200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Check(src); err != nil {
			b.Fatal(err)
		}
	}
}
