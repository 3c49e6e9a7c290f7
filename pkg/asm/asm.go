// Package asm checks x86-64 AT&T listings produced by the code generator
// before they are handed to the system assembler.
package asm

import (
	"fmt"
	"strings"
	"unicode"
)

var zeroOperandOps = map[string]bool{
	"ret":  true,
	"cltd": true,
	"cqto": true,
}

var oneOperandOps = map[string]bool{
	"pushq": true,
	"popq":  true,
	"negl":  true,
	"negq":  true,
	"notl":  true,
	"notq":  true,
	"idivl": true,
	"idivq": true,
	"sete":  true,
	"setne": true,
	"setl":  true,
	"setle": true,
	"setg":  true,
	"setge": true,
}

var twoOperandOps = map[string]bool{
	"movl":    true,
	"movq":    true,
	"movabsq": true,
	"movslq":  true,
	"movzbl":  true,
	"addl":    true,
	"addq":    true,
	"subl":    true,
	"subq":    true,
	"imull":   true,
	"imulq":   true,
	"cmpl":    true,
	"cmpq":    true,
}

// Branches take one label operand that must be defined in the listing.
var jumpOps = map[string]bool{
	"jmp": true,
	"je":  true,
	"jne": true,
}

var directives = map[string]bool{
	".globl":   true,
	".text":    true,
	".data":    true,
	".bss":     true,
	".section": true,
	".type":    true,
	".size":    true,
	".align":   true,
	".zero":    true,
	".long":    true,
	".quad":    true,
}

// Instruction is one checked instruction or directive.
type Instruction struct {
	Line     int
	Mnemonic string
	Operands []string
}

// Listing is the result of a successful Check.
type Listing struct {
	Labels       map[string]int // label -> defining line
	Instructions []Instruction
}

// Count returns how many times mnemonic appears in the listing.
func (l *Listing) Count(mnemonic string) int {
	n := 0
	for _, ins := range l.Instructions {
		if ins.Mnemonic == mnemonic {
			n++
		}
	}
	return n
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

type checker struct {
	labels map[string]int
}

// Check scans text in two passes. The first collects labels and rejects
// duplicates; the second validates every instruction and makes sure each
// branch and local call lands on a defined label.
func Check(text string) (*Listing, error) {
	c := &checker{labels: make(map[string]int)}
	lines := strings.Split(text, "\n")

	if err := c.pass1(lines); err != nil {
		return nil, err
	}
	return c.pass2(lines)
}

func (c *checker) pass1(lines []string) error {
	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return err
		}
		for _, lbl := range p.labels {
			if prev, exists := c.labels[lbl]; exists {
				return fmt.Errorf("duplicate label '%s' on line %d (first defined on line %d)", lbl, lineNo, prev)
			}
			c.labels[lbl] = lineNo
		}
	}
	return nil
}

func (c *checker) pass2(lines []string) (*Listing, error) {
	listing := &Listing{Labels: c.labels}

	for i, raw := range lines {
		lineNo := i + 1
		p, err := parseLine(raw, lineNo)
		if err != nil {
			return nil, err
		}
		if p.mnemonic == "" {
			continue
		}
		if err := c.checkInstruction(p); err != nil {
			return nil, err
		}
		listing.Instructions = append(listing.Instructions, Instruction{
			Line:     lineNo,
			Mnemonic: p.mnemonic,
			Operands: p.operands,
		})
	}
	return listing, nil
}

func (c *checker) checkInstruction(p parsedLine) error {
	mnemonic, ops, lineNo := p.mnemonic, p.operands, p.lineNo

	if strings.HasPrefix(mnemonic, ".") {
		if !directives[mnemonic] {
			return fmt.Errorf("unknown directive on line %d: %s", lineNo, mnemonic)
		}
		return nil
	}

	switch {
	case zeroOperandOps[mnemonic]:
		if len(ops) != 0 {
			return fmt.Errorf("%s expects 0 operands on line %d", mnemonic, lineNo)
		}

	case oneOperandOps[mnemonic]:
		if len(ops) != 1 {
			return fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}

	case twoOperandOps[mnemonic]:
		if len(ops) != 2 {
			return fmt.Errorf("%s expects 2 operands on line %d", mnemonic, lineNo)
		}
		if strings.HasPrefix(ops[1], "$") {
			return fmt.Errorf("%s cannot write to an immediate on line %d", mnemonic, lineNo)
		}

	case jumpOps[mnemonic]:
		if len(ops) != 1 {
			return fmt.Errorf("%s expects 1 operand on line %d", mnemonic, lineNo)
		}
		if _, ok := c.labels[ops[0]]; !ok {
			return fmt.Errorf("undefined label '%s' on line %d", ops[0], lineNo)
		}

	case mnemonic == "call":
		if len(ops) != 1 {
			return fmt.Errorf("call expects 1 operand on line %d", lineNo)
		}
		// Calls through the PLT resolve at link time.
		if strings.HasSuffix(ops[0], "@PLT") {
			return nil
		}
		if _, ok := c.labels[ops[0]]; !ok {
			return fmt.Errorf("call to undefined label '%s' on line %d", ops[0], lineNo)
		}

	default:
		return fmt.Errorf("unknown instruction on line %d: %s", lineNo, mnemonic)
	}
	return nil
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(stripComments(raw))
	if line == "" {
		return p, nil
	}

	for {
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			break
		}
		beforeColon := strings.TrimSpace(line[:colon])
		if strings.ContainsAny(beforeColon, " \t,\"") {
			break
		}
		if !isIdentifier(beforeColon) {
			return p, fmt.Errorf("invalid label '%s' on line %d", beforeColon, lineNo)
		}
		p.labels = append(p.labels, beforeColon)
		line = strings.TrimSpace(line[colon+1:])
		if line == "" {
			return p, nil
		}
	}

	mnemonic, rest := line, ""
	if sp := strings.IndexAny(line, " \t"); sp >= 0 {
		mnemonic, rest = line[:sp], line[sp+1:]
	}
	p.mnemonic = mnemonic
	p.operands = splitOperands(rest)
	return p, nil
}

// stripComments drops everything after a '#' that is not inside a string.
func stripComments(line string) string {
	inString := false
	for i, r := range line {
		switch r {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

// splitOperands splits on commas outside parentheses and strings, so a
// memory operand such as "(%rax,%rcx)" stays whole.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var ops []string
	depth, inString, start := 0, false, 0
	for i, r := range s {
		switch {
		case r == '"':
			inString = !inString
		case inString:
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == ',' && depth == 0:
			ops = append(ops, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(ops, strings.TrimSpace(s[start:]))
}

// isIdentifier accepts the symbol names GNU as allows in labels, including
// the ".L" prefix of local labels and the "name.N" form of static locals.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' && r != '.' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != '$' {
			return false
		}
	}
	return true
}
