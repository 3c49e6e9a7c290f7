package compiler

// checker assigns a Type to every expression of a resolved Program.
type checker struct {
	syms    *SymbolTable
	retType Type // return type of the function being checked
}

// Check types prog bottom-up. Mixed int/long operands promote to long,
// comparisons and logical operators yield int, and every assignment,
// argument and return converts implicitly between int and long. Using the
// result of a void function as a value is a *TypeError.
func Check(prog *Program, syms *SymbolTable) error {
	c := &checker{syms: syms}
	for _, d := range prog.Decls {
		switch n := d.(type) {
		case *VarDecl:
			if err := c.initializer(n); err != nil {
				return err
			}
		case *FuncDecl:
			if n.Body == nil {
				continue
			}
			c.retType = n.ReturnType
			if err := c.stmt(n.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *checker) initializer(d *VarDecl) error {
	if d.Init == nil {
		return nil
	}
	_, err := c.value(d.Init)
	return err
}

// value checks e and requires it to produce an int or long.
func (c *checker) value(e Expr) (Type, error) {
	t, err := c.expr(e)
	if err != nil {
		return Unresolved, err
	}
	if !t.IsScalar() {
		return Unresolved, typeErrorf(e.Span(), "void value not ignored as it ought to be")
	}
	return t, nil
}

func (c *checker) cond(e Expr) error {
	if e == nil {
		return nil
	}
	_, err := c.value(e)
	return err
}

func (c *checker) stmt(s Stmt) error {
	switch n := s.(type) {
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			if err := c.stmt(stmt); err != nil {
				return err
			}
		}

	case *DeclStmt:
		for _, d := range n.Decls {
			if err := c.initializer(d); err != nil {
				return err
			}
		}

	case *ExprStmt:
		// Statement position is the one place a void call is allowed.
		_, err := c.expr(n.Expr)
		return err

	case *ReturnStmt:
		if c.retType == Void {
			if n.Value != nil {
				return typeErrorf(n.Value.Span(), "return with a value in function returning void")
			}
			return nil
		}
		if n.Value == nil {
			return typeErrorf(n.At, "return without a value in function returning %s", c.retType)
		}
		_, err := c.value(n.Value)
		return err

	case *IfStmt:
		if err := c.cond(n.Cond); err != nil {
			return err
		}
		if err := c.stmt(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			return c.stmt(n.Else)
		}

	case *WhileStmt:
		if err := c.cond(n.Cond); err != nil {
			return err
		}
		return c.stmt(n.Body)

	case *DoWhileStmt:
		if err := c.stmt(n.Body); err != nil {
			return err
		}
		return c.cond(n.Cond)

	case *ForStmt:
		if n.Init != nil {
			if err := c.stmt(n.Init); err != nil {
				return err
			}
		}
		if err := c.cond(n.Cond); err != nil {
			return err
		}
		if n.Step != nil {
			if _, err := c.expr(n.Step); err != nil {
				return err
			}
		}
		return c.stmt(n.Body)
	}
	return nil
}

// expr types e and its children and records the result on each node.
func (c *checker) expr(e Expr) (Type, error) {
	var t Type
	switch n := e.(type) {
	case *IntLit:
		t = Int
		if n.Long {
			t = Long
		}

	case *VarRef:
		t = c.syms.Symbol(n.Sym).Type

	case *Assign:
		target, err := c.expr(n.Target)
		if err != nil {
			return Unresolved, err
		}
		if _, err := c.value(n.Value); err != nil {
			return Unresolved, err
		}
		t = target

	case *BinaryOp:
		lt, err := c.value(n.Left)
		if err != nil {
			return Unresolved, err
		}
		rt, err := c.value(n.Right)
		if err != nil {
			return Unresolved, err
		}
		switch n.Op {
		case EQUALS, NOT_EQ, LESS, LESS_EQ, GREATER, GREATER_EQ:
			t = Int
		default:
			t = commonType(lt, rt)
		}

	case *UnaryOp:
		ot, err := c.value(n.Operand)
		if err != nil {
			return Unresolved, err
		}
		t = ot
		if n.Op == NOT {
			t = Int
		}

	case *LogicalAnd:
		if _, err := c.value(n.Left); err != nil {
			return Unresolved, err
		}
		if _, err := c.value(n.Right); err != nil {
			return Unresolved, err
		}
		t = Int

	case *LogicalOr:
		if _, err := c.value(n.Left); err != nil {
			return Unresolved, err
		}
		if _, err := c.value(n.Right); err != nil {
			return Unresolved, err
		}
		t = Int

	case *Ternary:
		if err := c.cond(n.Cond); err != nil {
			return Unresolved, err
		}
		a, err := c.value(n.Then)
		if err != nil {
			return Unresolved, err
		}
		b, err := c.value(n.Else)
		if err != nil {
			return Unresolved, err
		}
		t = commonType(a, b)

	case *Cast:
		if _, err := c.value(n.Operand); err != nil {
			return Unresolved, err
		}
		t = n.Target

	case *Call:
		for _, arg := range n.Args {
			if _, err := c.value(arg); err != nil {
				return Unresolved, err
			}
		}
		t = c.syms.Symbol(n.Sym).Type

	default:
		return Unresolved, typeErrorf(e.Span(), "unknown expression node %T", e)
	}
	e.setType(t)
	return t, nil
}
