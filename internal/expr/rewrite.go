package expr

// Rewrite applies fn to every node of the tree bottom-up and returns the
// rewritten tree. A parent node is reallocated only when one of its children
// changed; a pass that changes nothing returns the original tree, pointer
// for pointer. This is the single traversal utility shared by all passes.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}

	switch n := e.(type) {
	case *Constant, *Parameter:
		// Leaves: nothing to recurse into.

	case *Binary:
		left := Rewrite(n.Left, fn)
		right := Rewrite(n.Right, fn)
		if left != n.Left || right != n.Right {
			e = &Binary{Op: n.Op, Left: left, Right: right}
		}

	case *Unary:
		operand := Rewrite(n.Operand, fn)
		if operand != n.Operand {
			e = &Unary{Op: n.Op, Operand: operand}
		}

	case *Member:
		instance := Rewrite(n.Instance, fn)
		if instance != n.Instance {
			e = &Member{Instance: instance, Name: n.Name}
		}

	case *Call:
		instance := Rewrite(n.Instance, fn)
		args := n.Args
		changed := instance != n.Instance
		for i, arg := range n.Args {
			rewritten := Rewrite(arg, fn)
			if rewritten == arg {
				continue
			}
			if !changed || &args[0] == &n.Args[0] {
				args = make([]Expr, len(n.Args))
				copy(args, n.Args)
			}
			args[i] = rewritten
			changed = true
		}
		if changed {
			e = &Call{Instance: instance, Fn: n.Fn, Args: args}
		}

	case *Convert:
		operand := Rewrite(n.Operand, fn)
		if operand != n.Operand {
			e = &Convert{Type: n.Type, Operand: operand}
		}
	}

	return fn(e)
}
