package expr

import "encoding/base64"

// ConvertTypes rewrites comparisons between a string literal and a column
// classified as binary so that the literal's value is the base64-decoded
// byte sequence. Binary columns (varbinary, rowversion) compare byte-exact,
// not textually, so the wire form of the value must be undone before it is
// bound as a parameter. isBinaryColumn reports whether a column name is
// classified as binary for the table being queried.
//
// A literal that is not valid base64 is left unchanged; the comparison then
// simply matches nothing, which is the correct outcome for a malformed token.
func ConvertTypes(e Expr, isBinaryColumn func(name string) bool) Expr {
	if e == nil || isBinaryColumn == nil {
		return e
	}
	return Rewrite(e, func(e Expr) Expr {
		n, ok := e.(*Binary)
		if !ok || !n.Op.IsComparison() {
			return e
		}
		if replaced := decodeBinaryOperand(n.Left, n.Right, isBinaryColumn); replaced != nil {
			return &Binary{Op: n.Op, Left: n.Left, Right: replaced}
		}
		if replaced := decodeBinaryOperand(n.Right, n.Left, isBinaryColumn); replaced != nil {
			return &Binary{Op: n.Op, Left: replaced, Right: n.Right}
		}
		return e
	})
}

// decodeBinaryOperand returns a replacement for lit when member is an access
// to a binary column and lit is a string constant, nil otherwise.
func decodeBinaryOperand(member, lit Expr, isBinaryColumn func(string) bool) Expr {
	m, ok := member.(*Member)
	if !ok || !isBinaryColumn(m.Name) {
		return nil
	}
	c, ok := lit.(*Constant)
	if !ok {
		return nil
	}
	s, ok := c.Value.(string)
	if !ok {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return &Constant{Value: decoded}
}
