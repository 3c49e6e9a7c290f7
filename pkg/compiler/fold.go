package compiler

// constValue evaluates e at compile time. It reports false when e refers to
// a variable or call, or would divide by zero; such expressions are left
// for run time. The returned type follows the checker's rules so folded and
// unfolded code agree.
func constValue(e Expr) (int64, Type, bool) {
	switch n := e.(type) {
	case *IntLit:
		if n.Long {
			return n.Value, Long, true
		}
		return convertConst(n.Value, Int), Int, true

	case *Cast:
		v, _, ok := constValue(n.Operand)
		if !ok {
			return 0, Unresolved, false
		}
		return convertConst(v, n.Target), n.Target, true

	case *UnaryOp:
		v, t, ok := constValue(n.Operand)
		if !ok {
			return 0, Unresolved, false
		}
		switch n.Op {
		case MINUS:
			return convertConst(-v, t), t, true
		case TILDE:
			return convertConst(^v, t), t, true
		case NOT:
			return boolConst(v == 0), Int, true
		}

	case *BinaryOp:
		l, lt, ok := constValue(n.Left)
		if !ok {
			return 0, Unresolved, false
		}
		r, rt, ok := constValue(n.Right)
		if !ok {
			return 0, Unresolved, false
		}
		t := commonType(lt, rt)
		switch n.Op {
		case PLUS:
			return convertConst(l+r, t), t, true
		case MINUS:
			return convertConst(l-r, t), t, true
		case STAR:
			return convertConst(l*r, t), t, true
		case SLASH, PERCENT:
			if r == 0 {
				return 0, Unresolved, false
			}
			if r == -1 {
				// Avoid the overflow trap of MinInt64 / -1.
				if n.Op == SLASH {
					return convertConst(-l, t), t, true
				}
				return 0, t, true
			}
			if n.Op == SLASH {
				return convertConst(l/r, t), t, true
			}
			return convertConst(l%r, t), t, true
		case EQUALS:
			return boolConst(l == r), Int, true
		case NOT_EQ:
			return boolConst(l != r), Int, true
		case LESS:
			return boolConst(l < r), Int, true
		case LESS_EQ:
			return boolConst(l <= r), Int, true
		case GREATER:
			return boolConst(l > r), Int, true
		case GREATER_EQ:
			return boolConst(l >= r), Int, true
		}

	case *LogicalAnd:
		l, _, ok := constValue(n.Left)
		if !ok {
			return 0, Unresolved, false
		}
		if l == 0 {
			return 0, Int, true
		}
		r, _, ok := constValue(n.Right)
		return boolConst(r != 0), Int, ok

	case *LogicalOr:
		l, _, ok := constValue(n.Left)
		if !ok {
			return 0, Unresolved, false
		}
		if l != 0 {
			return 1, Int, true
		}
		r, _, ok := constValue(n.Right)
		return boolConst(r != 0), Int, ok

	case *Ternary:
		c, _, ok := constValue(n.Cond)
		if !ok {
			return 0, Unresolved, false
		}
		a, at, ok := constValue(n.Then)
		if !ok {
			return 0, Unresolved, false
		}
		b, bt, ok := constValue(n.Else)
		if !ok {
			return 0, Unresolved, false
		}
		t := commonType(at, bt)
		if c != 0 {
			return convertConst(a, t), t, true
		}
		return convertConst(b, t), t, true
	}
	return 0, Unresolved, false
}

func boolConst(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
