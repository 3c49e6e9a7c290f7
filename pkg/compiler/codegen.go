package compiler

import (
	"fmt"
	"math"
	"strings"
)

// CodeGen walks a resolved, typed AST and emits x86-64 assembly in AT&T
// syntax for the System V AMD64 ABI.
//
// Every expression leaves its value in %eax (int) or %rax (long). Binary
// operators save the left operand with pushq while the right one is
// evaluated; depth tracks those pushes so calls can keep %rsp 16-byte
// aligned.
type CodeGen struct {
	syms      *SymbolTable
	out       strings.Builder
	nextLabel int
	fn        *FuncDecl
	depth     int // 8-byte slots pushed below the frame
	loopStack []LoopLabel
}

// LoopLabel holds the jump targets of the innermost enclosing loop.
type LoopLabel struct {
	End      string // where 'break' jumps to
	Continue string // where 'continue' jumps to
}

var (
	argRegs64 = [numArgRegs]string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}
	argRegs32 = [numArgRegs]string{"%edi", "%esi", "%edx", "%ecx", "%r8d", "%r9d"}
)

func newCodeGen(syms *SymbolTable) *CodeGen {
	return &CodeGen{syms: syms}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf(".L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("    # "+format, args...)
}

func (cg *CodeGen) label(l string) {
	cg.line("%s:", l)
}

func (cg *CodeGen) push() {
	cg.line("    pushq %%rax")
	cg.depth++
}

func (cg *CodeGen) pop(reg string) {
	cg.line("    popq %s", reg)
	cg.depth--
}

// suffix returns the operand-size suffix for t.
func suffix(t Type) string {
	if t == Long {
		return "q"
	}
	return "l"
}

// ax and cx return the accumulator and scratch register at the width of t.
func ax(t Type) string {
	if t == Long {
		return "%rax"
	}
	return "%eax"
}

func cx(t Type) string {
	if t == Long {
		return "%rcx"
	}
	return "%ecx"
}

// addr returns the memory operand of a variable.
func (cg *CodeGen) addr(id SymbolID) string {
	sym := cg.syms.Symbol(id)
	if sym.Storage == StorageLocal {
		return fmt.Sprintf("%d(%%rbp)", sym.Offset)
	}
	return sym.Label + "(%rip)"
}

// convert changes the accumulator from one integer width to another. Long
// to int needs no code: the low half of %rax is already %eax.
func (cg *CodeGen) convert(from, to Type) {
	if from == Int && to == Long {
		cg.line("    movslq %%eax, %%rax")
	}
}

// genExprAs evaluates e and converts the result to t.
func (cg *CodeGen) genExprAs(e Expr, t Type) error {
	if err := cg.genExpr(e); err != nil {
		return err
	}
	cg.convert(e.Type(), t)
	return nil
}

// loadConst puts v into the accumulator at the width of t.
func (cg *CodeGen) loadConst(v int64, t Type) {
	switch {
	case t != Long:
		cg.line("    movl $%d, %%eax", int32(v))
	case v >= math.MinInt32 && v <= math.MaxInt32:
		cg.line("    movq $%d, %%rax", v)
	default:
		cg.line("    movabsq $%d, %%rax", v)
	}
}

// testZero compares the accumulator, holding a value of type t, with zero.
func (cg *CodeGen) testZero(t Type) {
	cg.line("    cmp%s $0, %s", suffix(t), ax(t))
}

// genCondJump evaluates cond and jumps to target when it is zero.
func (cg *CodeGen) genCondJump(cond Expr, target string) error {
	if err := cg.genExpr(cond); err != nil {
		return err
	}
	cg.testZero(cond.Type())
	cg.line("    je %s", target)
	return nil
}

var setcc = map[TokenType]string{
	EQUALS:     "sete",
	NOT_EQ:     "setne",
	LESS:       "setl",
	LESS_EQ:    "setle",
	GREATER:    "setg",
	GREATER_EQ: "setge",
}

func (cg *CodeGen) genExpr(e Expr) error {
	if !e.Type().IsScalar() && e.Type() != Void {
		return codegenErrorf(e.Span(), "expression %s has no type", e)
	}

	// Fold constant subtrees, leaving division by zero to run time.
	switch e.(type) {
	case *IntLit, *BinaryOp, *UnaryOp, *Cast, *Ternary, *LogicalAnd, *LogicalOr:
		if v, _, ok := constValue(e); ok {
			cg.loadConst(convertConst(v, e.Type()), e.Type())
			return nil
		}
	}

	switch n := e.(type) {
	case *IntLit:
		// constValue always succeeds for literals.
		return codegenErrorf(n.At, "unfoldable literal %s", n)

	case *VarRef:
		if n.Sym == 0 {
			return codegenErrorf(n.At, "unresolved variable %q", n.Name)
		}
		cg.line("    mov%s %s, %s", suffix(n.Typ), cg.addr(n.Sym), ax(n.Typ))

	case *Assign:
		if err := cg.genExprAs(n.Value, n.Typ); err != nil {
			return err
		}
		cg.line("    mov%s %s, %s", suffix(n.Typ), ax(n.Typ), cg.addr(n.Target.Sym))

	case *Cast:
		return cg.genExprAs(n.Operand, n.Target)

	case *UnaryOp:
		if n.Op == NOT {
			if err := cg.genExpr(n.Operand); err != nil {
				return err
			}
			cg.testZero(n.Operand.Type())
			cg.line("    sete %%al")
			cg.line("    movzbl %%al, %%eax")
			return nil
		}
		if err := cg.genExprAs(n.Operand, n.Typ); err != nil {
			return err
		}
		switch n.Op {
		case MINUS:
			cg.line("    neg%s %s", suffix(n.Typ), ax(n.Typ))
		case TILDE:
			cg.line("    not%s %s", suffix(n.Typ), ax(n.Typ))
		default:
			return codegenErrorf(n.At, "unknown unary operator %s", n.Op)
		}

	case *BinaryOp:
		return cg.genBinary(n)

	case *LogicalAnd:
		falseLabel := cg.newLabel()
		endLabel := cg.newLabel()
		if err := cg.genCondJump(n.Left, falseLabel); err != nil {
			return err
		}
		if err := cg.genCondJump(n.Right, falseLabel); err != nil {
			return err
		}
		cg.line("    movl $1, %%eax")
		cg.line("    jmp %s", endLabel)
		cg.label(falseLabel)
		cg.line("    movl $0, %%eax")
		cg.label(endLabel)

	case *LogicalOr:
		trueLabel := cg.newLabel()
		endLabel := cg.newLabel()
		for _, side := range []Expr{n.Left, n.Right} {
			if err := cg.genExpr(side); err != nil {
				return err
			}
			cg.testZero(side.Type())
			cg.line("    jne %s", trueLabel)
		}
		cg.line("    movl $0, %%eax")
		cg.line("    jmp %s", endLabel)
		cg.label(trueLabel)
		cg.line("    movl $1, %%eax")
		cg.label(endLabel)

	case *Ternary:
		elseLabel := cg.newLabel()
		endLabel := cg.newLabel()
		if err := cg.genCondJump(n.Cond, elseLabel); err != nil {
			return err
		}
		if err := cg.genExprAs(n.Then, n.Typ); err != nil {
			return err
		}
		cg.line("    jmp %s", endLabel)
		cg.label(elseLabel)
		if err := cg.genExprAs(n.Else, n.Typ); err != nil {
			return err
		}
		cg.label(endLabel)

	case *Call:
		return cg.genCall(n)

	default:
		return codegenErrorf(e.Span(), "unknown expression node %T", e)
	}
	return nil
}

// genBinary evaluates both operands at their common type and combines them.
func (cg *CodeGen) genBinary(n *BinaryOp) error {
	ot := commonType(n.Left.Type(), n.Right.Type())
	if err := cg.genExprAs(n.Left, ot); err != nil {
		return err
	}
	cg.push()
	if err := cg.genExprAs(n.Right, ot); err != nil {
		return err
	}
	cg.line("    movq %%rax, %%rcx")
	cg.pop("%rax")

	s, a, c := suffix(ot), ax(ot), cx(ot)
	switch n.Op {
	case PLUS:
		cg.line("    add%s %s, %s", s, c, a)
	case MINUS:
		cg.line("    sub%s %s, %s", s, c, a)
	case STAR:
		cg.line("    imul%s %s, %s", s, c, a)
	case SLASH, PERCENT:
		if ot == Long {
			cg.line("    cqto")
		} else {
			cg.line("    cltd")
		}
		cg.line("    idiv%s %s", s, c)
		if n.Op == PERCENT {
			if ot == Long {
				cg.line("    movq %%rdx, %%rax")
			} else {
				cg.line("    movl %%edx, %%eax")
			}
		}
	case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
		cg.line("    cmp%s %s, %s", s, c, a)
		cg.line("    %s %%al", setcc[n.Op])
		cg.line("    movzbl %%al, %%eax")
	default:
		return codegenErrorf(n.At, "unknown binary operator %s", n.Op)
	}
	return nil
}

// genCall evaluates the arguments left to right and marshals them per the
// System V ABI: the first six in registers, the rest in an outgoing area
// at the top of the stack with %rsp 16-byte aligned at the call.
func (cg *CodeGen) genCall(n *Call) error {
	if n.Sym == 0 {
		return codegenErrorf(n.At, "unresolved function %q", n.Callee)
	}
	fn := cg.syms.Symbol(n.Sym)

	regArgs := len(n.Args)
	if regArgs > numArgRegs {
		regArgs = numArgRegs
	}
	stackArgs := len(n.Args) - regArgs

	pad := 0
	if (cg.depth+stackArgs)%2 != 0 {
		pad = 8
	}
	if reserve := pad + 8*stackArgs; reserve > 0 {
		cg.line("    subq $%d, %%rsp", reserve)
		cg.depth += reserve / 8
	}

	for i, arg := range n.Args {
		if err := cg.genExprAs(arg, fn.Params[i]); err != nil {
			return err
		}
		if i < numArgRegs {
			cg.push()
			continue
		}
		// Register arguments pushed so far sit between %rsp and the area.
		cg.line("    movq %%rax, %d(%%rsp)", 8*(regArgs+i-numArgRegs))
	}
	for i := regArgs - 1; i >= 0; i-- {
		cg.pop(argRegs64[i])
	}

	if fn.Defined {
		cg.line("    call %s", fn.Label)
	} else {
		cg.line("    call %s@PLT", fn.Label)
	}

	if reserve := pad + 8*stackArgs; reserve > 0 {
		cg.line("    addq $%d, %%rsp", reserve)
		cg.depth -= reserve / 8
	}
	return nil
}

// genEpilogue restores the caller's frame and returns.
func (cg *CodeGen) genEpilogue() {
	cg.line("    movq %%rbp, %%rsp")
	cg.line("    popq %%rbp")
	cg.line("    ret")
}

func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {

	case *ExprStmt:
		return cg.genExpr(n.Expr)

	case *ReturnStmt:
		if n.Value != nil {
			if err := cg.genExprAs(n.Value, cg.fn.ReturnType); err != nil {
				return err
			}
		}
		cg.genEpilogue()

	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if err := cg.genStmt(stmt); err != nil {
				return err
			}
		}

	case *DeclStmt:
		for _, d := range n.Decls {
			if d.Storage != StorageLocal || d.Init == nil {
				// Statics are emitted with the data; externs have no storage here.
				continue
			}
			if err := cg.genExprAs(d.Init, d.Type); err != nil {
				return err
			}
			cg.line("    mov%s %s, %s", suffix(d.Type), ax(d.Type), cg.addr(d.Sym))
		}

	case *IfStmt:
		elseLabel := cg.newLabel()
		if err := cg.genCondJump(n.Cond, elseLabel); err != nil {
			return err
		}
		if err := cg.genStmt(n.Then); err != nil {
			return err
		}
		if n.Else == nil {
			cg.label(elseLabel)
			return nil
		}
		endLabel := cg.newLabel()
		cg.line("    jmp %s", endLabel)
		cg.label(elseLabel)
		if err := cg.genStmt(n.Else); err != nil {
			return err
		}
		cg.label(endLabel)

	case *WhileStmt:
		startLabel := cg.newLabel()
		endLabel := cg.newLabel()
		cg.comment("while %s", n.Cond)
		cg.label(startLabel)
		if err := cg.genCondJump(n.Cond, endLabel); err != nil {
			return err
		}
		if err := cg.genLoopBody(n.Body, LoopLabel{End: endLabel, Continue: startLabel}); err != nil {
			return err
		}
		cg.line("    jmp %s", startLabel)
		cg.label(endLabel)

	case *DoWhileStmt:
		startLabel := cg.newLabel()
		contLabel := cg.newLabel()
		endLabel := cg.newLabel()
		cg.comment("do-while %s", n.Cond)
		cg.label(startLabel)
		if err := cg.genLoopBody(n.Body, LoopLabel{End: endLabel, Continue: contLabel}); err != nil {
			return err
		}
		cg.label(contLabel)
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.testZero(n.Cond.Type())
		cg.line("    jne %s", startLabel)
		cg.label(endLabel)

	case *ForStmt:
		startLabel := cg.newLabel()
		contLabel := cg.newLabel()
		endLabel := cg.newLabel()
		cg.comment("for")
		if n.Init != nil {
			if err := cg.genStmt(n.Init); err != nil {
				return err
			}
		}
		cg.label(startLabel)
		if n.Cond != nil {
			if err := cg.genCondJump(n.Cond, endLabel); err != nil {
				return err
			}
		}
		if err := cg.genLoopBody(n.Body, LoopLabel{End: endLabel, Continue: contLabel}); err != nil {
			return err
		}
		cg.label(contLabel)
		if n.Step != nil {
			if err := cg.genExpr(n.Step); err != nil {
				return err
			}
		}
		cg.line("    jmp %s", startLabel)
		cg.label(endLabel)

	case *BreakStmt:
		if len(cg.loopStack) == 0 {
			return codegenErrorf(n.At, "break statement outside of loop")
		}
		cg.line("    jmp %s", cg.loopStack[len(cg.loopStack)-1].End)

	case *ContinueStmt:
		if len(cg.loopStack) == 0 {
			return codegenErrorf(n.At, "continue statement outside of loop")
		}
		cg.line("    jmp %s", cg.loopStack[len(cg.loopStack)-1].Continue)

	case *NullStmt:

	default:
		return codegenErrorf(s.Span(), "unknown statement node %T", s)
	}
	return nil
}

func (cg *CodeGen) genLoopBody(body Stmt, labels LoopLabel) error {
	cg.loopStack = append(cg.loopStack, labels)
	defer func() { cg.loopStack = cg.loopStack[:len(cg.loopStack)-1] }()
	return cg.genStmt(body)
}

func (cg *CodeGen) genFunction(fn *FuncDecl) error {
	sym := cg.syms.Symbol(fn.Sym)
	cg.fn = fn
	cg.depth = 0
	defer func() { cg.fn = nil }()

	cg.line("")
	if fn.Storage != StorageStatic {
		cg.line("    .globl %s", sym.Label)
	}
	cg.line("    .text")
	cg.line("    .type %s, @function", sym.Label)
	cg.label(sym.Label)
	cg.line("    pushq %%rbp")
	cg.line("    movq %%rsp, %%rbp")
	if sym.Frame > 0 {
		cg.line("    subq $%d, %%rsp", sym.Frame)
	}

	// Spill register arguments to their frame slots.
	for i, p := range fn.Params {
		if i >= numArgRegs {
			break
		}
		reg := argRegs32[i]
		if p.Type == Long {
			reg = argRegs64[i]
		}
		cg.line("    mov%s %s, %s", suffix(p.Type), reg, cg.addr(p.Sym))
	}

	if err := cg.genStmt(fn.Body); err != nil {
		return err
	}

	// Falling off the end returns 0.
	if fn.ReturnType != Void {
		cg.line("    movl $0, %%eax")
	}
	cg.genEpilogue()
	cg.line("    .size %s, .-%s", sym.Label, sym.Label)
	return nil
}

// genData emits storage for every defined global and static variable.
func (cg *CodeGen) genData() {
	for _, id := range cg.syms.FileSymbols() {
		sym := cg.syms.Symbol(id)
		if sym.Kind != KindVar || sym.Storage == StorageExtern {
			continue
		}
		size := sym.Type.Size()

		cg.line("")
		if sym.Storage == StorageGlobal {
			cg.line("    .globl %s", sym.Label)
		}
		if sym.Init == 0 {
			cg.line("    .bss")
		} else {
			cg.line("    .data")
		}
		cg.line("    .align %d", size)
		cg.line("    .type %s, @object", sym.Label)
		cg.line("    .size %s, %d", sym.Label, size)
		cg.label(sym.Label)
		switch {
		case sym.Init == 0:
			cg.line("    .zero %d", size)
		case sym.Type == Long:
			cg.line("    .quad %d", sym.Init)
		default:
			cg.line("    .long %d", int32(sym.Init))
		}
	}
}

// Generate emits the assembly for prog. Unreachable static functions are
// dropped first. The output is deterministic: functions appear in source
// order followed by data in declaration order.
func Generate(prog *Program, syms *SymbolTable) (string, error) {
	prog = EliminateDeadStatics(prog)
	cg := newCodeGen(syms)

	for _, d := range prog.Decls {
		fn, ok := d.(*FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		if err := cg.genFunction(fn); err != nil {
			return "", err
		}
	}
	cg.genData()
	cg.line("")
	cg.line(`    .section .note.GNU-stack,"",@progbits`)
	return cg.out.String(), nil
}
