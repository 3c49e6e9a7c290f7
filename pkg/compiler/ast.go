package compiler

import (
	"fmt"
	"strings"

	"lilcc/pkg/report"
)

//  Expression nodes

// Expr is implemented by every node that produces a value. The type is
// Unresolved until Check annotates the tree; genExpr leaves the value in
// %rax (%eax for int).
type Expr interface {
	exprNode()
	Span() report.Span
	Type() Type
	setType(Type)
	String() string
}

// exprBase carries the position and checked type of an expression.
type exprBase struct {
	At  report.Span
	Typ Type
}

func (*exprBase) exprNode()           {}
func (e *exprBase) Span() report.Span { return e.At }
func (e *exprBase) Type() Type        { return e.Typ }
func (e *exprBase) setType(t Type)    { e.Typ = t }

// IntLit is a compile-time integer constant.
//
//	long x = 10L;
//	         ^^^  IntLit{Value: 10, Long: true}
type IntLit struct {
	exprBase
	Value int64
	Long  bool // l/L suffix, or too large for int
}

func (l *IntLit) String() string {
	if l.Long {
		return fmt.Sprintf("%dL", l.Value)
	}
	return fmt.Sprintf("%d", l.Value)
}

// VarRef is a read of a named variable.
//
//	return x;
//	       ^  VarRef{Name: "x"}
type VarRef struct {
	exprBase
	Name string
	Sym  SymbolID // set by Resolve
}

func (v *VarRef) String() string { return v.Name }

// Assign stores Value into Target and yields the stored value.
//
//	x = y = 3
//	^   ^^^^^  Value (right associative)
//	Target
type Assign struct {
	exprBase
	Target *VarRef
	Value  Expr
}

func (a *Assign) String() string { return fmt.Sprintf("(%s = %s)", a.Target, a.Value) }

// BinaryOp is an arithmetic or comparison operation: Left Op Right.
//
//	x + 1
//	^ ^ ^
//	| | |
//	| | Right
//	| Op
//	Left
type BinaryOp struct {
	exprBase
	Op    TokenType
	Left  Expr
	Right Expr
}

func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op.Symbol(), b.Right)
}

// UnaryOp is -x, ~x or !x.
type UnaryOp struct {
	exprBase
	Op      TokenType
	Operand Expr
}

func (u *UnaryOp) String() string { return fmt.Sprintf("(%s%s)", u.Op.Symbol(), u.Operand) }

// Ternary is Cond ? Then : Else. Only the selected branch is evaluated.
type Ternary struct {
	exprBase
	Cond Expr
	Then Expr
	Else Expr
}

func (t *Ternary) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

// LogicalAnd is Left && Right. It is kept apart from BinaryOp so code
// generation can short-circuit.
type LogicalAnd struct {
	exprBase
	Left  Expr
	Right Expr
}

func (l *LogicalAnd) String() string { return fmt.Sprintf("(%s && %s)", l.Left, l.Right) }

// LogicalOr is Left || Right.
type LogicalOr struct {
	exprBase
	Left  Expr
	Right Expr
}

func (l *LogicalOr) String() string { return fmt.Sprintf("(%s || %s)", l.Left, l.Right) }

// Call represents callee(args).
type Call struct {
	exprBase
	Callee string
	Args   []Expr
	Sym    SymbolID // set by Resolve
}

func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Callee, strings.Join(args, ", "))
}

// Cast converts Operand to Target: (long) x.
type Cast struct {
	exprBase
	Target  Type
	Operand Expr
}

func (c *Cast) String() string { return fmt.Sprintf("((%s) %s)", c.Target, c.Operand) }

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	stmtNode()
	Span() report.Span
	String() string
}

type stmtBase struct {
	At report.Span
}

func (*stmtBase) stmtNode()           {}
func (s *stmtBase) Span() report.Span { return s.At }

// ExprStmt is an expression evaluated for its side effects: foo(1);
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (s *ExprStmt) String() string { return s.Expr.String() + ";" }

// ReturnStmt is return [Value];
type ReturnStmt struct {
	stmtBase
	Value Expr // nil for a bare return
}

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return;"
	}
	return fmt.Sprintf("return %s;", s.Value)
}

// BlockStmt is { Stmts... } and opens a new scope.
type BlockStmt struct {
	stmtBase
	Stmts []Stmt
}

func (b *BlockStmt) String() string {
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, " ") + " }"
}

// IfStmt is if (Cond) Then [else Else]. Else is nil when absent; a dangling
// else attaches to the nearest if.
type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt
}

func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if %s %s", s.Cond, s.Then)
	}
	return fmt.Sprintf("if %s %s else %s", s.Cond, s.Then, s.Else)
}

// WhileStmt tests Cond before every iteration.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

func (s *WhileStmt) String() string { return fmt.Sprintf("while %s %s", s.Cond, s.Body) }

// DoWhileStmt runs Body once before the first test of Cond.
type DoWhileStmt struct {
	stmtBase
	Body Stmt
	Cond Expr
}

func (s *DoWhileStmt) String() string { return fmt.Sprintf("do %s while %s;", s.Body, s.Cond) }

// ForStmt is for (Init; Cond; Step) Body. Init is a *DeclStmt, an
// *ExprStmt or nil; Cond and Step may be nil.
//
//	for (int i = 0; i < 10; i = i + 1) { ... }
//	     ^^^^^^^^^  ^^^^^^  ^^^^^^^^^
//	     Init       Cond    Step
type ForStmt struct {
	stmtBase
	Init Stmt
	Cond Expr
	Step Expr
	Body Stmt
}

func (s *ForStmt) String() string {
	init, cond, step := ";", "", ""
	if s.Init != nil {
		init = s.Init.String()
	}
	if s.Cond != nil {
		cond = s.Cond.String()
	}
	if s.Step != nil {
		step = s.Step.String()
	}
	return fmt.Sprintf("for (%s %s; %s) %s", init, cond, step, s.Body)
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct{ stmtBase }

func (*BreakStmt) String() string { return "break;" }

// ContinueStmt jumps to the step (for) or test (while, do) of the innermost loop.
type ContinueStmt struct{ stmtBase }

func (*ContinueStmt) String() string { return "continue;" }

// NullStmt is a lone ';'.
type NullStmt struct{ stmtBase }

func (*NullStmt) String() string { return ";" }

// DeclStmt declares one or more variables inside a block: long a = 1, b;
type DeclStmt struct {
	stmtBase
	Decls []*VarDecl
}

func (s *DeclStmt) String() string {
	parts := make([]string, len(s.Decls))
	for i, d := range s.Decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, " ")
}

//  Declarations

// Storage is where a variable lives, or how a function is linked.
type Storage int

const (
	StorageLocal  Storage = iota // stack slot
	StorageGlobal                // exported label
	StorageStatic                // unit-private label
	StorageExtern                // label defined in another unit
)

var storageNames = [...]string{
	StorageLocal:  "local",
	StorageGlobal: "global",
	StorageStatic: "static",
	StorageExtern: "extern",
}

func (s Storage) String() string {
	if int(s) >= 0 && int(s) < len(storageNames) {
		return storageNames[s]
	}
	return fmt.Sprintf("Storage(%d)", int(s))
}

// Decl is a top-level declaration.
type Decl interface {
	declNode()
	Span() report.Span
	String() string
}

// VarDecl declares one variable, at file scope or inside a block.
//
//	static long count = 0;
//	^^^^^^ ^^^^ ^^^^^   ^  Init
//	|      |    Name
//	|      Type
//	Storage
type VarDecl struct {
	At      report.Span
	Name    string
	Type    Type
	Storage Storage
	Init    Expr // nil when absent
	Sym     SymbolID
}

func (*VarDecl) declNode()           {}
func (d *VarDecl) Span() report.Span { return d.At }
func (d *VarDecl) String() string {
	prefix := ""
	if d.Storage == StorageStatic || d.Storage == StorageExtern {
		prefix = d.Storage.String() + " "
	}
	if d.Init == nil {
		return fmt.Sprintf("%s%s %s;", prefix, d.Type, d.Name)
	}
	return fmt.Sprintf("%s%s %s = %s;", prefix, d.Type, d.Name, d.Init)
}

// Param is one function parameter.
type Param struct {
	At   report.Span
	Name string
	Type Type
	Sym  SymbolID
}

// FuncDecl is a function definition, or a prototype when Body is nil.
type FuncDecl struct {
	At         report.Span
	Name       string
	ReturnType Type
	Params     []*Param
	Body       *BlockStmt
	Storage    Storage // StorageGlobal or StorageStatic
	Sym        SymbolID
}

func (*FuncDecl) declNode()           {}
func (f *FuncDecl) Span() report.Span { return f.At }
func (f *FuncDecl) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	prefix := ""
	if f.Storage == StorageStatic {
		prefix = "static "
	}
	head := fmt.Sprintf("%s%s %s(%s)", prefix, f.ReturnType, f.Name, strings.Join(params, ", "))
	if f.Body == nil {
		return head + ";"
	}
	return head + " " + f.Body.String()
}

// Program is one parsed translation unit.
type Program struct {
	Decls []Decl
}

func (p *Program) String() string {
	parts := make([]string, len(p.Decls))
	for i, d := range p.Decls {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
