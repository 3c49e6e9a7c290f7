package compiler

// resolver binds every name in a Program to a Symbol and assigns storage.
type resolver struct {
	syms      *SymbolTable
	loopDepth int
}

// Resolve walks prog, opening a scope per function and per nested block,
// and records the SymbolID of every declaration, variable reference and
// call. It returns the first *SymbolError found.
func Resolve(prog *Program) (*SymbolTable, error) {
	r := &resolver{syms: NewSymbolTable()}
	for _, d := range prog.Decls {
		var err error
		switch n := d.(type) {
		case *FuncDecl:
			err = r.function(n)
		case *VarDecl:
			err = r.fileVar(n)
		}
		if err != nil {
			return nil, err
		}
	}
	return r.syms, nil
}

// constInit evaluates the initializer of a global or static variable.
func constInit(d *VarDecl) (int64, bool, error) {
	if d.Init == nil {
		return 0, false, nil
	}
	v, _, ok := constValue(d.Init)
	if !ok {
		return 0, false, symbolErrorf(InvalidInitializer, d.Name, d.Init.Span(),
			"initializer of %s variable %q is not a constant", d.Storage, d.Name)
	}
	return convertConst(v, d.Type), true, nil
}

func (r *resolver) fileVar(d *VarDecl) error {
	if err := r.expr(d.Init); err != nil {
		return err
	}
	init, hasInit, err := constInit(d)
	if err != nil {
		return err
	}
	id, err := r.syms.DeclareFileVar(d.Name, d.Type, d.Storage, hasInit, init, d.At)
	if err != nil {
		return err
	}
	d.Sym = id
	return nil
}

func (r *resolver) function(fn *FuncDecl) error {
	params := make([]Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	id, err := r.syms.DeclareFunc(fn.Name, fn.ReturnType, params, fn.Storage, fn.Body != nil, fn.At)
	if err != nil {
		return err
	}
	fn.Sym = id
	if fn.Body == nil {
		return nil
	}

	// Parameters and the outermost block share one scope.
	r.syms.EnterFunction()
	defer func() {
		r.syms.Symbol(id).Frame = r.syms.ExitFunction()
	}()
	for i, p := range fn.Params {
		if p.Sym, err = r.syms.DefineParam(p.Name, p.Type, i, p.At); err != nil {
			return err
		}
	}
	for _, stmt := range fn.Body.Stmts {
		if err := r.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) localVar(d *VarDecl) error {
	var err error
	switch d.Storage {
	case StorageStatic:
		if err := r.expr(d.Init); err != nil {
			return err
		}
		init, _, err := constInit(d)
		if err != nil {
			return err
		}
		d.Sym, err = r.syms.DefineStaticLocal(d.Name, d.Type, init, d.At)
		return err

	case StorageExtern:
		if d.Init != nil {
			return symbolErrorf(InvalidInitializer, d.Name, d.Init.Span(),
				"block-scope extern variable %q cannot have an initializer", d.Name)
		}
		d.Sym, err = r.syms.DeclareExternLocal(d.Name, d.Type, d.At)
		return err
	}

	// The name is in scope inside its own initializer.
	if d.Sym, err = r.syms.DefineLocal(d.Name, d.Type, d.At); err != nil {
		return err
	}
	return r.expr(d.Init)
}

// block resolves stmts in a fresh scope that is dropped on every exit path.
func (r *resolver) block(stmts []Stmt) error {
	r.syms.EnterScope()
	defer r.syms.ExitScope()
	for _, stmt := range stmts {
		if err := r.stmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) loopBody(body Stmt) error {
	r.loopDepth++
	defer func() { r.loopDepth-- }()
	return r.stmt(body)
}

func (r *resolver) stmt(s Stmt) error {
	switch n := s.(type) {
	case *BlockStmt:
		return r.block(n.Stmts)

	case *DeclStmt:
		for _, d := range n.Decls {
			if err := r.localVar(d); err != nil {
				return err
			}
		}

	case *ExprStmt:
		return r.expr(n.Expr)

	case *ReturnStmt:
		return r.expr(n.Value)

	case *IfStmt:
		if err := r.expr(n.Cond); err != nil {
			return err
		}
		if err := r.stmt(n.Then); err != nil {
			return err
		}
		if n.Else != nil {
			return r.stmt(n.Else)
		}

	case *WhileStmt:
		if err := r.expr(n.Cond); err != nil {
			return err
		}
		return r.loopBody(n.Body)

	case *DoWhileStmt:
		if err := r.loopBody(n.Body); err != nil {
			return err
		}
		return r.expr(n.Cond)

	case *ForStmt:
		// The init declaration lives in its own scope around the loop.
		r.syms.EnterScope()
		defer r.syms.ExitScope()
		if n.Init != nil {
			if err := r.stmt(n.Init); err != nil {
				return err
			}
		}
		if err := r.expr(n.Cond); err != nil {
			return err
		}
		if err := r.expr(n.Step); err != nil {
			return err
		}
		return r.loopBody(n.Body)

	case *BreakStmt:
		if r.loopDepth == 0 {
			return symbolErrorf(BreakOutsideLoop, "", n.At, "break statement outside of loop")
		}

	case *ContinueStmt:
		if r.loopDepth == 0 {
			return symbolErrorf(ContinueOutsideLoop, "", n.At, "continue statement outside of loop")
		}

	case *NullStmt:
	}
	return nil
}

func (r *resolver) expr(e Expr) error {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case *IntLit:

	case *VarRef:
		id, ok := r.syms.Lookup(n.Name)
		if !ok {
			return symbolErrorf(Undeclared, n.Name, n.At, "undeclared identifier %q", n.Name)
		}
		if r.syms.Symbol(id).Kind == KindFunc {
			return symbolErrorf(NotAVariable, n.Name, n.At, "function %q used as a value", n.Name)
		}
		n.Sym = id

	case *Assign:
		if err := r.expr(n.Target); err != nil {
			return err
		}
		return r.expr(n.Value)

	case *BinaryOp:
		if err := r.expr(n.Left); err != nil {
			return err
		}
		return r.expr(n.Right)

	case *LogicalAnd:
		if err := r.expr(n.Left); err != nil {
			return err
		}
		return r.expr(n.Right)

	case *LogicalOr:
		if err := r.expr(n.Left); err != nil {
			return err
		}
		return r.expr(n.Right)

	case *UnaryOp:
		return r.expr(n.Operand)

	case *Cast:
		return r.expr(n.Operand)

	case *Ternary:
		if err := r.expr(n.Cond); err != nil {
			return err
		}
		if err := r.expr(n.Then); err != nil {
			return err
		}
		return r.expr(n.Else)

	case *Call:
		id, ok := r.syms.Lookup(n.Callee)
		if !ok {
			return symbolErrorf(Undeclared, n.Callee, n.At, "call to undeclared function %q", n.Callee)
		}
		sym := r.syms.Symbol(id)
		if sym.Kind != KindFunc {
			return symbolErrorf(NotAFunction, n.Callee, n.At, "%q is a variable, not a function", n.Callee)
		}
		if len(n.Args) != len(sym.Params) {
			return symbolErrorf(ArityMismatch, n.Callee, n.At, "function %q expects %d argument(s), got %d",
				n.Callee, len(sym.Params), len(n.Args))
		}
		n.Sym = id
		for _, arg := range n.Args {
			if err := r.expr(arg); err != nil {
				return err
			}
		}
	}
	return nil
}
