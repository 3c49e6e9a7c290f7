package compiler

// EliminateDeadStatics returns prog without the static functions that no
// externally visible function can reach. Static functions are private to
// the unit, so nothing outside it can call them either.
func EliminateDeadStatics(prog *Program) *Program {
	// 1. Map all function definitions by name
	funcs := make(map[string]*FuncDecl)
	for _, d := range prog.Decls {
		if f, ok := d.(*FuncDecl); ok && f.Body != nil {
			funcs[f.Name] = f
		}
	}

	reachable := make(map[string]bool)
	var worklist []string

	// Helper to mark a function as used and queue it for inspection
	addReachable := func(name string) {
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	// 2. Every non-static definition is a root
	for _, d := range prog.Decls {
		if f, ok := d.(*FuncDecl); ok && f.Body != nil && f.Storage != StorageStatic {
			addReachable(f.Name)
		}
	}

	// 3. Traverse the worklist to find all transitively reachable functions
	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]

		fDecl, exists := funcs[curr]
		if !exists {
			// Declared elsewhere; nothing to inspect.
			continue
		}

		calls := make(map[string]bool)
		findCallsStmt(fDecl.Body, calls)
		for call := range calls {
			addReachable(call)
		}
	}

	// 4. Rebuild the declaration list, keeping order stable
	out := &Program{}
	for _, d := range prog.Decls {
		if f, ok := d.(*FuncDecl); ok && f.Storage == StorageStatic && f.Body != nil && !reachable[f.Name] {
			continue
		}
		out.Decls = append(out.Decls, d)
	}
	return out
}

func findCallsExpr(e Expr, calls map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *Call:
		calls[n.Callee] = true
		for _, arg := range n.Args {
			findCallsExpr(arg, calls)
		}
	case *Assign:
		findCallsExpr(n.Value, calls)
	case *BinaryOp:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *LogicalAnd:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *LogicalOr:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *UnaryOp:
		findCallsExpr(n.Operand, calls)
	case *Cast:
		findCallsExpr(n.Operand, calls)
	case *Ternary:
		findCallsExpr(n.Cond, calls)
		findCallsExpr(n.Then, calls)
		findCallsExpr(n.Else, calls)
	}
}

func findCallsStmt(s Stmt, calls map[string]bool) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *BlockStmt:
		for _, stmt := range n.Stmts {
			findCallsStmt(stmt, calls)
		}
	case *ExprStmt:
		findCallsExpr(n.Expr, calls)
	case *DeclStmt:
		for _, d := range n.Decls {
			findCallsExpr(d.Init, calls)
		}
	case *ReturnStmt:
		findCallsExpr(n.Value, calls)
	case *IfStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Then, calls)
		findCallsStmt(n.Else, calls)
	case *WhileStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Body, calls)
	case *DoWhileStmt:
		findCallsStmt(n.Body, calls)
		findCallsExpr(n.Cond, calls)
	case *ForStmt:
		findCallsStmt(n.Init, calls)
		findCallsExpr(n.Cond, calls)
		findCallsExpr(n.Step, calls)
		findCallsStmt(n.Body, calls)
	}
}
