package compiler

import "fmt"

// Stage names a point at which the pipeline can stop.
type Stage int

const (
	StageLex      Stage = iota // tokens only
	StageParse                 // tokens and AST
	StageValidate              // resolved and type-checked AST
	StageCodegen               // assembly text
)

var stageNames = [...]string{
	StageLex:      "lex",
	StageParse:    "parse",
	StageValidate: "validate",
	StageCodegen:  "codegen",
}

func (s Stage) String() string {
	if int(s) >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Unit is everything the pipeline produced for one source file, up to the
// stage it stopped at.
type Unit struct {
	Tokens  []Token
	Program *Program
	Symbols *SymbolTable
	Asm     string
}

// Compile runs the whole pipeline on src and returns the assembly.
func Compile(src string) (string, error) {
	unit, err := CompileTo(src, StageCodegen)
	if err != nil {
		return "", err
	}
	return unit.Asm, nil
}

// CompileTo runs the pipeline up to and including stop. Each stage fully
// consumes the previous stage's output; the first error aborts the unit and
// is returned unwrapped so callers can render its span.
func CompileTo(src string, stop Stage) (*Unit, error) {
	unit := &Unit{}

	tokens, err := Lex(src)
	if err != nil {
		return nil, err
	}
	unit.Tokens = tokens
	if stop == StageLex {
		return unit, nil
	}

	prog, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	unit.Program = prog
	if stop == StageParse {
		return unit, nil
	}

	syms, err := Resolve(prog)
	if err != nil {
		return nil, err
	}
	if err := Check(prog, syms); err != nil {
		return nil, err
	}
	unit.Symbols = syms
	if stop == StageValidate {
		return unit, nil
	}

	asm, err := Generate(prog, syms)
	if err != nil {
		return nil, err
	}
	unit.Asm = asm
	return unit, nil
}
