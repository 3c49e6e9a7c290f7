package compiler

import (
	"fmt"

	"lilcc/pkg/report"
)

// diag is the position and message shared by every stage error.
type diag struct {
	At  report.Span
	Msg string
}

func (d diag) Span() report.Span { return d.At }
func (d diag) Message() string   { return d.Msg }

// LexError reports an invalid character, literal or comment.
type LexError struct{ diag }

func (e *LexError) Error() string { return fmt.Sprintf("lex error at %s: %s", e.At, e.Msg) }

// ParseError reports a grammar violation at the offending token.
type ParseError struct{ diag }

func (e *ParseError) Error() string { return fmt.Sprintf("parse error at %s: %s", e.At, e.Msg) }

// SymbolErrorKind classifies name resolution failures.
type SymbolErrorKind int

const (
	Undeclared SymbolErrorKind = iota
	Redeclared
	ArityMismatch
	NotAFunction
	NotAVariable
	BreakOutsideLoop
	ContinueOutsideLoop
	InvalidInitializer
)

var symbolErrorKindNames = [...]string{
	Undeclared:          "Undeclared",
	Redeclared:          "Redeclared",
	ArityMismatch:       "ArityMismatch",
	NotAFunction:        "NotAFunction",
	NotAVariable:        "NotAVariable",
	BreakOutsideLoop:    "BreakOutsideLoop",
	ContinueOutsideLoop: "ContinueOutsideLoop",
	InvalidInitializer:  "InvalidInitializer",
}

func (k SymbolErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(symbolErrorKindNames) {
		return symbolErrorKindNames[k]
	}
	return fmt.Sprintf("SymbolErrorKind(%d)", int(k))
}

// SymbolError reports a failure to bind a name or assign it storage.
type SymbolError struct {
	diag
	Kind SymbolErrorKind
	Name string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("symbol error (%s) at %s: %s", e.Kind, e.At, e.Msg)
}

// TypeError reports an incompatible operand, assignment, argument or return.
type TypeError struct{ diag }

func (e *TypeError) Error() string { return fmt.Sprintf("type error at %s: %s", e.At, e.Msg) }

// CodegenError reports an AST shape the generator cannot lower. Upstream
// checks make it unreachable for user input.
type CodegenError struct{ diag }

func (e *CodegenError) Error() string { return fmt.Sprintf("codegen error at %s: %s", e.At, e.Msg) }

func lexErrorf(at report.Span, format string, args ...any) *LexError {
	return &LexError{diag{At: at, Msg: fmt.Sprintf(format, args...)}}
}

func parseErrorf(at report.Span, format string, args ...any) *ParseError {
	return &ParseError{diag{At: at, Msg: fmt.Sprintf(format, args...)}}
}

func symbolErrorf(kind SymbolErrorKind, name string, at report.Span, format string, args ...any) *SymbolError {
	return &SymbolError{diag: diag{At: at, Msg: fmt.Sprintf(format, args...)}, Kind: kind, Name: name}
}

func typeErrorf(at report.Span, format string, args ...any) *TypeError {
	return &TypeError{diag{At: at, Msg: fmt.Sprintf(format, args...)}}
}

func codegenErrorf(at report.Span, format string, args ...any) *CodegenError {
	return &CodegenError{diag{At: at, Msg: fmt.Sprintf(format, args...)}}
}
