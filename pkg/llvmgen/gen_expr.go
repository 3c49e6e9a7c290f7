package llvmgen

import (
	"fmt"

	"lilcc/pkg/compiler"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

var icmpPreds = map[compiler.TokenType]enum.IPred{
	compiler.EQUALS:     enum.IPredEQ,
	compiler.NOT_EQ:     enum.IPredNE,
	compiler.LESS:       enum.IPredSLT,
	compiler.LESS_EQ:    enum.IPredSLE,
	compiler.GREATER:    enum.IPredSGT,
	compiler.GREATER_EQ: enum.IPredSGE,
}

// genExprAs generates e and converts the result to t.
func (g *Generator) genExprAs(e compiler.Expr, t compiler.Type) (value.Value, error) {
	v, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	return g.convert(v, e.Type(), t), nil
}

// convert sign-extends int to long and truncates long to int.
func (g *Generator) convert(v value.Value, from, to compiler.Type) value.Value {
	switch {
	case from == compiler.Int && to == compiler.Long:
		return g.block.NewSExt(v, types.I64)
	case from == compiler.Long && to == compiler.Int:
		return g.block.NewTrunc(v, types.I32)
	}
	return v
}

// genCond evaluates e as a truth value.
func (g *Generator) genCond(e compiler.Expr) (value.Value, error) {
	v, err := g.genExpr(e)
	if err != nil {
		return nil, err
	}
	return g.block.NewICmp(enum.IPredNE, v, constant.NewInt(intType(e.Type()), 0)), nil
}

// boolToInt widens an i1 to the int 0 or 1.
func (g *Generator) boolToInt(v value.Value) value.Value {
	return g.block.NewZExt(v, types.I32)
}

func (g *Generator) genExpr(e compiler.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *compiler.IntLit:
		v := n.Value
		if n.Type() == compiler.Int {
			v = int64(int32(v))
		}
		return constant.NewInt(intType(n.Type()), v), nil

	case *compiler.VarRef:
		if n.Sym == 0 {
			return nil, fmt.Errorf("%s: unresolved variable %q", n.Span(), n.Name)
		}
		return g.block.NewLoad(convType(n.Type()), g.addr(n.Sym)), nil

	case *compiler.Assign:
		v, err := g.genExprAs(n.Value, n.Type())
		if err != nil {
			return nil, err
		}
		g.block.NewStore(v, g.addr(n.Target.Sym))
		return v, nil

	case *compiler.Cast:
		return g.genExprAs(n.Operand, n.Target)

	case *compiler.UnaryOp:
		if n.Op == compiler.NOT {
			v, err := g.genExpr(n.Operand)
			if err != nil {
				return nil, err
			}
			zero := constant.NewInt(intType(n.Operand.Type()), 0)
			return g.boolToInt(g.block.NewICmp(enum.IPredEQ, v, zero)), nil
		}
		v, err := g.genExprAs(n.Operand, n.Type())
		if err != nil {
			return nil, err
		}
		it := intType(n.Type())
		switch n.Op {
		case compiler.MINUS:
			return g.block.NewSub(constant.NewInt(it, 0), v), nil
		case compiler.TILDE:
			return g.block.NewXor(v, constant.NewInt(it, -1)), nil
		}
		return nil, fmt.Errorf("%s: unknown unary operator %s", n.Span(), n.Op)

	case *compiler.BinaryOp:
		return g.genBinary(n)

	case *compiler.LogicalAnd:
		return g.genShortCircuit(n.Left, n.Right, false)

	case *compiler.LogicalOr:
		return g.genShortCircuit(n.Left, n.Right, true)

	case *compiler.Ternary:
		thenBlock := g.appendBlock()
		elseBlock := g.appendBlock()
		endBlock := g.appendBlock()
		if err := g.genBranch(n.Cond, thenBlock, elseBlock); err != nil {
			return nil, err
		}

		g.block = thenBlock
		thenVal, err := g.genExprAs(n.Then, n.Type())
		if err != nil {
			return nil, err
		}
		thenEnd := g.block
		g.block.NewBr(endBlock)

		g.block = elseBlock
		elseVal, err := g.genExprAs(n.Else, n.Type())
		if err != nil {
			return nil, err
		}
		elseEnd := g.block
		g.block.NewBr(endBlock)

		g.block = endBlock
		return g.block.NewPhi(ir.NewIncoming(thenVal, thenEnd), ir.NewIncoming(elseVal, elseEnd)), nil

	case *compiler.Call:
		return g.genCall(n)
	}
	return nil, fmt.Errorf("%s: unknown expression node %T", e.Span(), e)
}

// genBinary evaluates both operands at their common type and combines them.
func (g *Generator) genBinary(n *compiler.BinaryOp) (value.Value, error) {
	ot := compiler.Int
	if n.Left.Type() == compiler.Long || n.Right.Type() == compiler.Long {
		ot = compiler.Long
	}
	l, err := g.genExprAs(n.Left, ot)
	if err != nil {
		return nil, err
	}
	r, err := g.genExprAs(n.Right, ot)
	if err != nil {
		return nil, err
	}

	if pred, ok := icmpPreds[n.Op]; ok {
		return g.boolToInt(g.block.NewICmp(pred, l, r)), nil
	}
	switch n.Op {
	case compiler.PLUS:
		return g.block.NewAdd(l, r), nil
	case compiler.MINUS:
		return g.block.NewSub(l, r), nil
	case compiler.STAR:
		return g.block.NewMul(l, r), nil
	case compiler.SLASH:
		return g.block.NewSDiv(l, r), nil
	case compiler.PERCENT:
		return g.block.NewSRem(l, r), nil
	}
	return nil, fmt.Errorf("%s: unknown binary operator %s", n.Span(), n.Op)
}

// genShortCircuit generates left && right, or left || right when or is
// set. Right is only evaluated when left does not decide the result.
func (g *Generator) genShortCircuit(left, right compiler.Expr, or bool) (value.Value, error) {
	rightBlock := g.appendBlock()
	endBlock := g.appendBlock()

	l, err := g.genCond(left)
	if err != nil {
		return nil, err
	}
	leftEnd := g.block
	if or {
		g.block.NewCondBr(l, endBlock, rightBlock)
	} else {
		g.block.NewCondBr(l, rightBlock, endBlock)
	}

	g.block = rightBlock
	r, err := g.genCond(right)
	if err != nil {
		return nil, err
	}
	rightEnd := g.block
	g.block.NewBr(endBlock)

	g.block = endBlock
	decided := constant.NewBool(or)
	phi := g.block.NewPhi(ir.NewIncoming(decided, leftEnd), ir.NewIncoming(r, rightEnd))
	return g.boolToInt(phi), nil
}

func (g *Generator) genCall(n *compiler.Call) (value.Value, error) {
	if n.Sym == 0 {
		return nil, fmt.Errorf("%s: unresolved function %q", n.Span(), n.Callee)
	}
	sym := g.syms.Symbol(n.Sym)
	fn := g.function(n.Sym)

	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := g.genExprAs(a, sym.Params[i])
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return g.block.NewCall(fn, args...), nil
}
