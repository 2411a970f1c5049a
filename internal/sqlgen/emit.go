package sqlgen

import (
	"fmt"
	"strings"

	"github.com/dataq-io/dataq/internal/expr"
)

// emit renders one expression node into the statement text. Constants
// always become parameters (NULL excepted); identifiers are validated
// before they are bracketed into the text.
func (f *formatter) emit(e expr.Expr) error {
	switch n := e.(type) {
	case *expr.Constant:
		if n.Value == nil {
			f.sb.WriteString("NULL")
			return nil
		}
		f.sb.WriteString(f.param(n.Value))
		return nil

	case *expr.Binary:
		return f.emitBinary(n)

	case *expr.Unary:
		return f.emitUnary(n)

	case *expr.Member:
		return f.emitMember(n)

	case *expr.Call:
		return f.emitCall(n)

	case *expr.Convert:
		return f.emitConvert(n)

	case *expr.Parameter:
		return fmt.Errorf("bare row reference is not valid in this position")
	}
	return fmt.Errorf("unsupported expression node %T", e)
}

var binaryOperators = map[expr.BinaryOp]string{
	expr.OpOr:  "OR",
	expr.OpAnd: "AND",
	expr.OpEq:  "=",
	expr.OpNe:  "<>",
	expr.OpGt:  ">",
	expr.OpGe:  ">=",
	expr.OpLt:  "<",
	expr.OpLe:  "<=",
	expr.OpAdd: "+",
	expr.OpSub: "-",
	expr.OpMul: "*",
	expr.OpDiv: "/",
}

func (f *formatter) emitBinary(n *expr.Binary) error {
	// Comparisons against the null literal become IS [NOT] NULL; equality
	// against NULL never matches in this dialect.
	if n.Op == expr.OpEq || n.Op == expr.OpNe {
		if operand, ok := nullComparisonOperand(n); ok {
			f.sb.WriteString("(")
			if err := f.emit(operand); err != nil {
				return err
			}
			if n.Op == expr.OpEq {
				f.sb.WriteString(" IS NULL)")
			} else {
				f.sb.WriteString(" IS NOT NULL)")
			}
			return nil
		}
	}

	// Native modulo rejects the engine's default float representation, so
	// the left operand converts to fixed-point first.
	if n.Op == expr.OpMod {
		f.sb.WriteString("(")
		if err := f.emit(&expr.Convert{Type: expr.ConvertNumeric, Operand: n.Left}); err != nil {
			return err
		}
		f.sb.WriteString(" % ")
		if err := f.emit(n.Right); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil
	}

	op, ok := binaryOperators[n.Op]
	if !ok {
		return fmt.Errorf("unsupported binary operator %q", n.Op)
	}
	f.sb.WriteString("(")
	if err := f.emit(n.Left); err != nil {
		return err
	}
	f.sb.WriteString(" " + op + " ")
	if err := f.emit(n.Right); err != nil {
		return err
	}
	f.sb.WriteString(")")
	return nil
}

func nullComparisonOperand(n *expr.Binary) (expr.Expr, bool) {
	if c, ok := n.Left.(*expr.Constant); ok && c.Value == nil {
		return n.Right, true
	}
	if c, ok := n.Right.(*expr.Constant); ok && c.Value == nil {
		return n.Left, true
	}
	return nil, false
}

func (f *formatter) emitUnary(n *expr.Unary) error {
	switch n.Op {
	case expr.OpNot:
		f.sb.WriteString("NOT (")
		if err := f.emit(n.Operand); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil
	case expr.OpNegate:
		f.sb.WriteString("-(")
		if err := f.emit(n.Operand); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil
	}
	return fmt.Errorf("unsupported unary operator %q", n.Op)
}

// emitMember renders a column reference. Only direct properties of the query
// row are addressable; anything deeper has no column to land on.
func (f *formatter) emitMember(n *expr.Member) error {
	if _, ok := n.Instance.(*expr.Parameter); !ok {
		return fmt.Errorf("nested member access %q is not supported", n.Name)
	}
	if err := ValidateIdentifier(n.Name); err != nil {
		return err
	}
	f.sb.WriteString(Bracket(n.Name))
	return nil
}

func (f *formatter) emitConvert(n *expr.Convert) error {
	switch n.Type {
	case expr.ConvertString:
		f.sb.WriteString("CAST(")
		if err := f.emit(n.Operand); err != nil {
			return err
		}
		f.sb.WriteString(" AS NVARCHAR(MAX))")
		return nil
	case expr.ConvertNumeric:
		f.sb.WriteString("CONVERT(NUMERIC(38, 10), ")
		if err := f.emit(n.Operand); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil
	}
	return fmt.Errorf("unsupported conversion to %q", n.Type)
}

func (f *formatter) emitCall(n *expr.Call) error {
	switch n.Fn.Name {
	case "startswith":
		return f.emitLike(n.Instance, nil, n.Args[0], true)
	case "endswith":
		return f.emitLike(n.Instance, n.Args[0], nil, true)
	case "substringof":
		// Instance is the haystack after the parser's argument reorder.
		return f.emitLike(n.Instance, n.Args[0], nil, false)

	case "concat":
		f.sb.WriteString("(")
		if err := f.emitStringOperand(n.Args[0]); err != nil {
			return err
		}
		f.sb.WriteString(" + ")
		if err := f.emitStringOperand(n.Args[1]); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil

	case "substring":
		// The grammar is 0-based, SUBSTRING is 1-based. The two-argument
		// form runs to the end of the string.
		f.sb.WriteString("SUBSTRING(")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString(", ")
		if err := f.emit(n.Args[0]); err != nil {
			return err
		}
		f.sb.WriteString(" + 1, ")
		if len(n.Args) == 2 {
			if err := f.emit(n.Args[1]); err != nil {
				return err
			}
		} else {
			if err := f.emitLen(n.Instance); err != nil {
				return err
			}
		}
		f.sb.WriteString(")")
		return nil

	case "replace":
		f.sb.WriteString("REPLACE(")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		for _, arg := range n.Args {
			f.sb.WriteString(", ")
			if err := f.emit(arg); err != nil {
				return err
			}
		}
		f.sb.WriteString(")")
		return nil

	case "tolower", "toupper":
		name := "LOWER"
		if n.Fn.Name == "toupper" {
			name = "UPPER"
		}
		f.sb.WriteString(name + "(")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil

	case "trim":
		f.sb.WriteString("LTRIM(RTRIM(")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString("))")
		return nil

	case "indexof":
		// CHARINDEX takes (needle, haystack) and is 1-based.
		f.sb.WriteString("(CHARINDEX(")
		if err := f.emit(n.Args[0]); err != nil {
			return err
		}
		f.sb.WriteString(", ")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString(") - 1)")
		return nil

	case "length":
		return f.emitLen(n.Instance)

	case "day", "month", "year":
		f.sb.WriteString(strings.ToUpper(n.Fn.Name) + "(")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil

	case "hour", "minute", "second":
		part := map[string]string{"hour": "HOUR", "minute": "MINUTE", "second": "SECOND"}[n.Fn.Name]
		f.sb.WriteString("DATEPART(" + part + ", ")
		if err := f.emit(n.Instance); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil

	case "floor", "ceiling":
		name := "FLOOR"
		if n.Fn.Name == "ceiling" {
			name = "CEILING"
		}
		f.sb.WriteString(name + "(")
		if err := f.emit(n.Args[0]); err != nil {
			return err
		}
		f.sb.WriteString(")")
		return nil

	case "round":
		// ROUND with length 0 rounds midpoints away from zero.
		f.sb.WriteString("ROUND(")
		if err := f.emit(n.Args[0]); err != nil {
			return err
		}
		f.sb.WriteString(", 0)")
		return nil
	}
	return fmt.Errorf("unsupported function %q", n.Fn.Name)
}

// emitLike renders a pattern match: prefix match, suffix match, or contains
// depending on which sides get wildcards. anchored=true means one-sided
// (startswith/endswith), false means contains.
func (f *formatter) emitLike(subject expr.Expr, leading, trailing expr.Expr, anchored bool) error {
	f.sb.WriteString("(")
	if err := f.emit(subject); err != nil {
		return err
	}
	f.sb.WriteString(" LIKE (")
	switch {
	case !anchored:
		// contains: '%' + needle + '%'
		f.sb.WriteString("'%' + ")
		if err := f.emit(leading); err != nil {
			return err
		}
		f.sb.WriteString(" + '%'")
	case leading != nil:
		// endswith: '%' + suffix
		f.sb.WriteString("'%' + ")
		if err := f.emit(leading); err != nil {
			return err
		}
	default:
		// startswith: prefix + '%'
		if err := f.emit(trailing); err != nil {
			return err
		}
		f.sb.WriteString(" + '%'")
	}
	f.sb.WriteString("))")
	return nil
}

// emitLen renders the string length. LEN ignores trailing whitespace, so the
// subject gets a sentinel character appended and the count adjusted back.
func (f *formatter) emitLen(subject expr.Expr) error {
	f.sb.WriteString("(LEN(")
	if err := f.emit(subject); err != nil {
		return err
	}
	f.sb.WriteString(" + 'X') - 1)")
	return nil
}

// emitStringOperand renders a concat operand, casting when the operand is
// not already string-typed.
func (f *formatter) emitStringOperand(e expr.Expr) error {
	if isStringTyped(e) {
		return f.emit(e)
	}
	return f.emit(&expr.Convert{Type: expr.ConvertString, Operand: e})
}

// isStringTyped reports whether an expression is statically known to
// produce a string.
func isStringTyped(e expr.Expr) bool {
	switch n := e.(type) {
	case *expr.Constant:
		_, ok := n.Value.(string)
		return ok
	case *expr.Convert:
		return n.Type == expr.ConvertString
	case *expr.Call:
		if n.Fn.Namespace != expr.NamespaceString {
			return false
		}
		switch n.Fn.Name {
		case "concat", "substring", "replace", "tolower", "toupper", "trim":
			return true
		}
	}
	return false
}
