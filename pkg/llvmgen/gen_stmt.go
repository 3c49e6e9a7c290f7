package llvmgen

import (
	"fmt"

	"lilcc/pkg/compiler"

	"github.com/llir/llvm/ir"
)

func (g *Generator) genBlock(stmts []compiler.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// jump ends the current block with a branch to target. Anything generated
// after it lands in a fresh block with no predecessors.
func (g *Generator) jump(target *ir.Block) {
	g.block.NewBr(target)
	g.block = g.appendBlock()
}

func (g *Generator) genStmt(s compiler.Stmt) error {
	switch n := s.(type) {
	case *compiler.ExprStmt:
		_, err := g.genExpr(n.Expr)
		return err

	case *compiler.NullStmt:
		return nil

	case *compiler.ReturnStmt:
		if n.Value == nil {
			g.block.NewRet(nil)
		} else {
			v, err := g.genExprAs(n.Value, g.retType)
			if err != nil {
				return err
			}
			g.block.NewRet(v)
		}
		g.block = g.appendBlock()

	case *compiler.BlockStmt:
		return g.genBlock(n.Stmts)

	case *compiler.DeclStmt:
		for _, d := range n.Decls {
			if d.Storage != compiler.StorageLocal {
				// Statics live in module globals; externs only need a reference.
				continue
			}
			slot := g.entry.NewAlloca(convType(d.Type))
			g.locals[d.Sym] = slot
			if d.Init == nil {
				continue
			}
			v, err := g.genExprAs(d.Init, d.Type)
			if err != nil {
				return err
			}
			g.block.NewStore(v, slot)
		}

	case *compiler.IfStmt:
		thenBlock := g.appendBlock()
		endBlock := g.appendBlock()
		elseBlock := endBlock
		if n.Else != nil {
			elseBlock = g.appendBlock()
		}
		if err := g.genBranch(n.Cond, thenBlock, elseBlock); err != nil {
			return err
		}

		g.block = thenBlock
		if err := g.genStmt(n.Then); err != nil {
			return err
		}
		g.block.NewBr(endBlock)

		if n.Else != nil {
			g.block = elseBlock
			if err := g.genStmt(n.Else); err != nil {
				return err
			}
			g.block.NewBr(endBlock)
		}
		g.block = endBlock

	case *compiler.WhileStmt:
		condBlock := g.appendBlock()
		bodyBlock := g.appendBlock()
		endBlock := g.appendBlock()

		g.block.NewBr(condBlock)
		g.block = condBlock
		if err := g.genBranch(n.Cond, bodyBlock, endBlock); err != nil {
			return err
		}
		g.block = bodyBlock
		if err := g.genLoopBody(n.Body, endBlock, condBlock); err != nil {
			return err
		}
		g.block.NewBr(condBlock)
		g.block = endBlock

	case *compiler.DoWhileStmt:
		bodyBlock := g.appendBlock()
		condBlock := g.appendBlock()
		endBlock := g.appendBlock()

		g.block.NewBr(bodyBlock)
		g.block = bodyBlock
		if err := g.genLoopBody(n.Body, endBlock, condBlock); err != nil {
			return err
		}
		g.block.NewBr(condBlock)
		g.block = condBlock
		if err := g.genBranch(n.Cond, bodyBlock, endBlock); err != nil {
			return err
		}
		g.block = endBlock

	case *compiler.ForStmt:
		if n.Init != nil {
			if err := g.genStmt(n.Init); err != nil {
				return err
			}
		}
		condBlock := g.appendBlock()
		bodyBlock := g.appendBlock()
		stepBlock := g.appendBlock()
		endBlock := g.appendBlock()

		g.block.NewBr(condBlock)
		g.block = condBlock
		if n.Cond == nil {
			g.block.NewBr(bodyBlock)
		} else if err := g.genBranch(n.Cond, bodyBlock, endBlock); err != nil {
			return err
		}

		g.block = bodyBlock
		if err := g.genLoopBody(n.Body, endBlock, stepBlock); err != nil {
			return err
		}
		g.block.NewBr(stepBlock)

		g.block = stepBlock
		if n.Step != nil {
			if _, err := g.genExpr(n.Step); err != nil {
				return err
			}
		}
		g.block.NewBr(condBlock)
		g.block = endBlock

	case *compiler.BreakStmt:
		if len(g.loops) == 0 {
			return fmt.Errorf("%s: break outside of loop", n.At)
		}
		g.jump(g.loops[len(g.loops)-1].breakTo)

	case *compiler.ContinueStmt:
		if len(g.loops) == 0 {
			return fmt.Errorf("%s: continue outside of loop", n.At)
		}
		g.jump(g.loops[len(g.loops)-1].continueTo)

	default:
		return fmt.Errorf("%s: unknown statement node %T", s.Span(), s)
	}
	return nil
}

func (g *Generator) genLoopBody(body compiler.Stmt, breakTo, continueTo *ir.Block) error {
	g.loops = append(g.loops, loop{breakTo: breakTo, continueTo: continueTo})
	err := g.genStmt(body)
	g.loops = g.loops[:len(g.loops)-1]
	return err
}

// genBranch evaluates cond and branches on whether it is non-zero.
func (g *Generator) genBranch(cond compiler.Expr, ifTrue, ifFalse *ir.Block) error {
	v, err := g.genCond(cond)
	if err != nil {
		return err
	}
	g.block.NewCondBr(v, ifTrue, ifFalse)
	return nil
}
