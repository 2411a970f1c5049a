package parse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataq-io/dataq/internal/expr"
)

func member(name string) expr.Expr {
	return &expr.Member{Instance: &expr.Parameter{}, Name: name}
}

func TestParseFilter_Comparison(t *testing.T) {
	e, err := ParseFilter("title eq 'Go'")
	require.NoError(t, err)

	assert.Equal(t, &expr.Binary{
		Op:    expr.OpEq,
		Left:  member("title"),
		Right: &expr.Constant{Value: "Go"},
	}, e)
}

func TestParseFilter_Precedence(t *testing.T) {
	// or binds loosest, then and, then comparison.
	e, err := ParseFilter("a eq 1 or b eq 2 and c eq 3")
	require.NoError(t, err)

	or, ok := e.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpOr, or.Op)

	and, ok := or.Right.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, and.Op)
}

func TestParseFilter_ArithmeticPrecedence(t *testing.T) {
	e, err := ParseFilter("a add b mul c gt 10")
	require.NoError(t, err)

	gt, ok := e.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpGt, gt.Op)

	add, ok := gt.Left.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAdd, add.Op)

	mul, ok := add.Right.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpMul, mul.Op)
}

func TestParseFilter_LeftAssociative(t *testing.T) {
	e, err := ParseFilter("a sub b sub c")
	require.NoError(t, err)

	outer, ok := e.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpSub, outer.Op)
	assert.Equal(t, member("c"), outer.Right)

	inner, ok := outer.Left.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, member("a"), inner.Left)
	assert.Equal(t, member("b"), inner.Right)
}

func TestParseFilter_Parentheses(t *testing.T) {
	e, err := ParseFilter("(a or b) and c")
	require.NoError(t, err)

	and, ok := e.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpAnd, and.Op)

	or, ok := and.Left.(*expr.Binary)
	require.True(t, ok)
	assert.Equal(t, expr.OpOr, or.Op)
}

func TestParseFilter_KeywordLiterals(t *testing.T) {
	testCases := []struct {
		input string
		value any
	}{
		{"true", true},
		{"false", false},
		{"null", nil},
		{"42", 42.0},
		{"3.5", 3.5},
		{"'text'", "text"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			e, err := ParseFilter(tc.input)
			require.NoError(t, err)
			assert.Equal(t, &expr.Constant{Value: tc.value}, e)
		})
	}
}

func TestParseFilter_NegatedLiteralFolds(t *testing.T) {
	e, err := ParseFilter("-5")
	require.NoError(t, err)
	assert.Equal(t, &expr.Constant{Value: -5.0}, e)
}

func TestParseFilter_NegatedMember(t *testing.T) {
	e, err := ParseFilter("-position gt 1")
	require.NoError(t, err)

	gt := e.(*expr.Binary)
	assert.Equal(t, &expr.Unary{Op: expr.OpNegate, Operand: member("position")}, gt.Left)
}

func TestParseFilter_Not(t *testing.T) {
	e, err := ParseFilter("not complete")
	require.NoError(t, err)
	assert.Equal(t, &expr.Unary{Op: expr.OpNot, Operand: member("complete")}, e)
}

func TestParseFilter_DateTimeLiteral(t *testing.T) {
	e, err := ParseFilter("created gt datetime'2024-01-15T10:30:00'")
	require.NoError(t, err)

	gt := e.(*expr.Binary)
	c, ok := gt.Right.(*expr.Constant)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), c.Value)
}

func TestParseFilter_DateTimeOffsetLiteral(t *testing.T) {
	e, err := ParseFilter("datetimeoffset'2024-01-15T10:30:00Z'")
	require.NoError(t, err)

	c, ok := e.(*expr.Constant)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), c.Value.(time.Time).UTC())
}

func TestParseFilter_InvalidDateTimeLiteral(t *testing.T) {
	_, err := ParseFilter("datetime'yesterday'")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
}

func TestParseFilter_ColumnNamedDatetime(t *testing.T) {
	// The literal keyword only applies when a string follows; a bare column
	// that happens to share the name still parses as member access.
	e, err := ParseFilter("datetime eq null")
	require.NoError(t, err)

	eq := e.(*expr.Binary)
	assert.Equal(t, member("datetime"), eq.Left)
}

func TestParseFilter_MemberChain(t *testing.T) {
	e, err := ParseFilter("owner.name eq 'x'")
	require.NoError(t, err)

	eq := e.(*expr.Binary)
	outer, ok := eq.Left.(*expr.Member)
	require.True(t, ok)
	assert.Equal(t, "name", outer.Name)

	inner, ok := outer.Instance.(*expr.Member)
	require.True(t, ok)
	assert.Equal(t, "owner", inner.Name)
}

func TestParseFilter_InstanceFunction(t *testing.T) {
	e, err := ParseFilter("startswith(title, 'Go')")
	require.NoError(t, err)

	call, ok := e.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, "startswith", call.Fn.Name)
	assert.Equal(t, member("title"), call.Instance)
	require.Len(t, call.Args, 1)
	assert.Equal(t, &expr.Constant{Value: "Go"}, call.Args[0])
}

func TestParseFilter_SubstringofReordersArgs(t *testing.T) {
	// substringof(needle, haystack): the haystack becomes the subject.
	e, err := ParseFilter("substringof('go', title)")
	require.NoError(t, err)

	call := e.(*expr.Call)
	assert.Equal(t, "substringof", call.Fn.Name)
	assert.Equal(t, member("title"), call.Instance)
	require.Len(t, call.Args, 1)
	assert.Equal(t, &expr.Constant{Value: "go"}, call.Args[0])
}

func TestParseFilter_StaticFunction(t *testing.T) {
	e, err := ParseFilter("concat(first, last) eq 'ab'")
	require.NoError(t, err)

	eq := e.(*expr.Binary)
	call, ok := eq.Left.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, "concat", call.Fn.Name)
	assert.Nil(t, call.Instance)
	assert.Len(t, call.Args, 2)
}

func TestParseFilter_SubstringArities(t *testing.T) {
	_, err := ParseFilter("substring(title, 1) eq 'x'")
	assert.NoError(t, err)

	_, err = ParseFilter("substring(title, 1, 2) eq 'x'")
	assert.NoError(t, err)

	_, err = ParseFilter("substring(title) eq 'x'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not accept 1 arguments")
}

func TestParseFilter_UnknownFunction(t *testing.T) {
	_, err := ParseFilter("magic(title)")
	require.Error(t, err)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 0, se.Pos)
	assert.Contains(t, se.Message, `unknown function "magic"`)
}

func TestParseFilter_NestedReplaceRejected(t *testing.T) {
	_, err := ParseFilter("replace(replace(title, 'a', 'b'), 'c', 'd') eq 'x'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replace cannot be nested")
}

func TestParseFilter_ReplaceLiteralTooLong(t *testing.T) {
	long := strings.Repeat("z", maxReplaceLiteral+1)
	_, err := ParseFilter("replace(title, 'a', '" + long + "') eq 'x'")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 100 characters")
}

func TestParseFilter_ReplaceLiteralAtLimit(t *testing.T) {
	exact := strings.Repeat("z", maxReplaceLiteral)
	_, err := ParseFilter("replace(title, 'a', '" + exact + "') eq 'x'")
	assert.NoError(t, err)
}

func TestParseFilter_TrailingInput(t *testing.T) {
	_, err := ParseFilter("a eq 1 b")
	require.Error(t, err)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 7, se.Pos)
}

func TestParseFilter_Empty(t *testing.T) {
	_, err := ParseFilter("")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
}

func TestParseFilter_UnbalancedParen(t *testing.T) {
	_, err := ParseFilter("(a eq 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected ')'")
}

func TestParseOrderBy_Empty(t *testing.T) {
	terms, err := ParseOrderBy("")
	require.NoError(t, err)
	assert.Nil(t, terms)

	terms, err = ParseOrderBy("   ")
	require.NoError(t, err)
	assert.Nil(t, terms)
}

func TestParseOrderBy_DefaultAscending(t *testing.T) {
	terms, err := ParseOrderBy("title")
	require.NoError(t, err)

	require.Len(t, terms, 1)
	assert.Equal(t, member("title"), terms[0].Selector)
	assert.True(t, terms[0].Ascending)
}

func TestParseOrderBy_MultipleTerms(t *testing.T) {
	terms, err := ParseOrderBy("position desc, title asc, id")
	require.NoError(t, err)

	require.Len(t, terms, 3)
	assert.False(t, terms[0].Ascending)
	assert.True(t, terms[1].Ascending)
	assert.True(t, terms[2].Ascending)
	assert.Equal(t, member("id"), terms[2].Selector)
}

func TestParseOrderBy_ExpressionSelector(t *testing.T) {
	terms, err := ParseOrderBy("year(created) desc")
	require.NoError(t, err)

	require.Len(t, terms, 1)
	call, ok := terms[0].Selector.(*expr.Call)
	require.True(t, ok)
	assert.Equal(t, "year", call.Fn.Name)
	assert.False(t, terms[0].Ascending)
}

func TestParseOrderBy_TrailingGarbage(t *testing.T) {
	_, err := ParseOrderBy("title sideways")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))
}
