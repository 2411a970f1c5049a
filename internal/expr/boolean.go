package expr

// booleanFunctions are the boolean-returning string functions. A call to one
// of these is already a predicate in the generated SQL and needs no coercion.
var booleanFunctions = map[string]bool{
	"startswith":  true,
	"endswith":    true,
	"substringof": true,
}

// IsBoolean reports whether e is structurally a boolean expression:
// a comparison, a logical connective, a negation, or a call to one of the
// boolean string functions. Everything else (member access, arithmetic,
// other functions) must be coerced before use in a logical position.
func IsBoolean(e Expr) bool {
	switch n := e.(type) {
	case *Binary:
		return n.Op.IsComparison() || n.Op.IsLogical()
	case *Unary:
		return n.Op == OpNot
	case *Call:
		return n.Fn.Namespace == NamespaceString && booleanFunctions[n.Fn.Name]
	}
	return false
}

// Booleanize normalizes truthiness so that every logical operand in the tree
// is a genuine boolean expression, and the top-level expression itself is
// boolean. Non-boolean operands x of and/or/not become (x = true); an
// equality or inequality between a boolean expression and a boolean literal
// is simplified away (comparing to true drops the comparison, comparing to
// false negates).
func Booleanize(e Expr) Expr {
	if e == nil {
		return nil
	}
	return ensureBoolean(Rewrite(e, booleanizeNode))
}

func booleanizeNode(e Expr) Expr {
	switch n := e.(type) {
	case *Binary:
		if n.Op.IsLogical() {
			left := ensureBoolean(n.Left)
			right := ensureBoolean(n.Right)
			if left != n.Left || right != n.Right {
				return &Binary{Op: n.Op, Left: left, Right: right}
			}
			return n
		}
		if n.Op == OpEq || n.Op == OpNe {
			if simplified, ok := simplifyBoolComparison(n); ok {
				return simplified
			}
		}

	case *Unary:
		if n.Op == OpNot {
			operand := ensureBoolean(n.Operand)
			if operand != n.Operand {
				return &Unary{Op: OpNot, Operand: operand}
			}
		}
	}
	return e
}

// simplifyBoolComparison collapses comparisons of a boolean expression
// against a boolean literal: (b eq true) => b, (b eq false) => not b, and
// the mirrored forms for ne and for a literal on the left.
func simplifyBoolComparison(n *Binary) (Expr, bool) {
	boolSide, lit := n.Left, n.Right
	value, ok := boolLiteral(lit)
	if !ok {
		boolSide, lit = n.Right, n.Left
		if value, ok = boolLiteral(lit); !ok {
			return nil, false
		}
	}
	if !IsBoolean(boolSide) {
		return nil, false
	}
	if n.Op == OpNe {
		value = !value
	}
	if value {
		return boolSide, true
	}
	return &Unary{Op: OpNot, Operand: boolSide}, true
}

func boolLiteral(e Expr) (bool, bool) {
	c, ok := e.(*Constant)
	if !ok {
		return false, false
	}
	b, ok := c.Value.(bool)
	return b, ok
}

func ensureBoolean(e Expr) Expr {
	if IsBoolean(e) {
		return e
	}
	return &Binary{Op: OpEq, Left: e, Right: &Constant{Value: true}}
}
