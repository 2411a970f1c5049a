package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/dataq-io/dataq/internal/expr"
)

// OrderBy is a single order-by term: the selector expression and direction.
type OrderBy struct {
	Selector  expr.Expr
	Ascending bool
}

// ParseFilter parses filter text into an expression tree.
func ParseFilter(text string) (expr.Expr, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.kind != tokenEOF {
		return nil, syntaxErrorf(text, tok.pos, "unexpected %s", tok.kind)
	}
	return e, nil
}

// ParseOrderBy parses order-by text into an ordered list of terms.
// Each term is an expression optionally followed by asc or desc; the
// direction defaults to ascending.
func ParseOrderBy(text string) ([]OrderBy, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	p, err := newParser(text)
	if err != nil {
		return nil, err
	}
	var terms []OrderBy
	for {
		selector, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		term := OrderBy{Selector: selector, Ascending: true}
		if tok := p.cur(); tok.kind == tokenIdentifier {
			switch tok.text {
			case "asc":
				p.next()
			case "desc":
				term.Ascending = false
				p.next()
			}
		}
		terms = append(terms, term)

		tok := p.cur()
		if tok.kind == tokenComma {
			p.next()
			continue
		}
		if tok.kind != tokenEOF {
			return nil, syntaxErrorf(text, tok.pos, "unexpected %s", tok.kind)
		}
		return terms, nil
	}
}

type parser struct {
	input  string
	tokens []token
	pos    int
}

func newParser(input string) (*parser, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	return &parser{input: input, tokens: tokens}, nil
}

func (p *parser) cur() token  { return p.tokens[p.pos] }
func (p *parser) peek() token { return p.tokens[min(p.pos+1, len(p.tokens)-1)] }
func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// errorf builds a SyntaxError at the current token.
func (p *parser) errorf(format string, args ...any) error {
	return syntaxErrorf(p.input, p.cur().pos, format, args...)
}

// Binary operator precedence tiers, low to high. Operators are word tokens,
// so each tier matches identifier text in operand position.
var (
	orOps             = map[string]expr.BinaryOp{"or": expr.OpOr}
	andOps            = map[string]expr.BinaryOp{"and": expr.OpAnd}
	comparisonOps     = map[string]expr.BinaryOp{"eq": expr.OpEq, "ne": expr.OpNe, "gt": expr.OpGt, "ge": expr.OpGe, "lt": expr.OpLt, "le": expr.OpLe}
	additiveOps       = map[string]expr.BinaryOp{"add": expr.OpAdd, "sub": expr.OpSub}
	multiplicativeOps = map[string]expr.BinaryOp{"mul": expr.OpMul, "div": expr.OpDiv, "mod": expr.OpMod}
)

func (p *parser) parseExpression() (expr.Expr, error) {
	return p.parseBinary(orOps, func() (expr.Expr, error) {
		return p.parseBinary(andOps, func() (expr.Expr, error) {
			return p.parseBinary(comparisonOps, func() (expr.Expr, error) {
				return p.parseBinary(additiveOps, func() (expr.Expr, error) {
					return p.parseBinary(multiplicativeOps, p.parseUnary)
				})
			})
		})
	})
}

// parseBinary parses a left-associative tier: operand (op operand)*.
func (p *parser) parseBinary(ops map[string]expr.BinaryOp, operand func() (expr.Expr, error)) (expr.Expr, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.cur()
		if tok.kind != tokenIdentifier {
			return left, nil
		}
		op, ok := ops[tok.text]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &expr.Binary{Op: op, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (expr.Expr, error) {
	tok := p.cur()
	if tok.kind == tokenMinus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold a negated numeric literal so it binds as one parameter.
		if c, ok := operand.(*expr.Constant); ok {
			if f, ok := c.Value.(float64); ok {
				return &expr.Constant{Value: -f}, nil
			}
		}
		return &expr.Unary{Op: expr.OpNegate, Operand: operand}, nil
	}
	if tok.kind == tokenIdentifier && tok.text == "not" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &expr.Unary{Op: expr.OpNot, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expr.Expr, error) {
	tok := p.cur()
	switch tok.kind {
	case tokenOpenParen:
		p.next()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokenCloseParen {
			return nil, p.errorf("expected ')', found %s", p.cur().kind)
		}
		p.next()
		return e, nil

	case tokenString:
		p.next()
		return &expr.Constant{Value: tok.text}, nil

	case tokenNumber:
		p.next()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, syntaxErrorf(p.input, tok.pos, "invalid number %q", tok.text)
		}
		return &expr.Constant{Value: f}, nil

	case tokenIdentifier:
		return p.parseIdentifier()
	}
	return nil, p.errorf("unexpected %s", tok.kind)
}

// parseIdentifier handles everything that begins with a name: keyword
// literals, typed datetime literals, function calls, and member chains, in
// that order of recognition.
func (p *parser) parseIdentifier() (expr.Expr, error) {
	tok := p.next()
	switch tok.text {
	case "true":
		return &expr.Constant{Value: true}, nil
	case "false":
		return &expr.Constant{Value: false}, nil
	case "null":
		return &expr.Constant{Value: nil}, nil
	case "datetime", "datetimeoffset":
		if p.cur().kind == tokenString {
			return p.parseDateTimeLiteral(tok.text)
		}
		// Fall through to plain member access for columns that happen to
		// share the literal prefix name.
	}

	if p.cur().kind == tokenOpenParen {
		return p.parseCall(tok)
	}

	var member expr.Expr = &expr.Member{Instance: &expr.Parameter{}, Name: tok.text}
	for p.cur().kind == tokenDot {
		p.next()
		name := p.cur()
		if name.kind != tokenIdentifier {
			return nil, p.errorf("expected member name after '.', found %s", name.kind)
		}
		p.next()
		member = &expr.Member{Instance: member, Name: name.text}
	}
	return member, nil
}

// datetimeLayouts are the accepted ISO 8601 shapes, most specific first.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (p *parser) parseDateTimeLiteral(keyword string) (expr.Expr, error) {
	tok := p.next() // the string token
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, tok.text); err == nil {
			return &expr.Constant{Value: t}, nil
		}
	}
	return nil, syntaxErrorf(p.input, tok.pos, "invalid %s literal %q", keyword, tok.text)
}

func (p *parser) parseCall(name token) (expr.Expr, error) {
	entry, ok := functionTable[name.text]
	if !ok {
		return nil, syntaxErrorf(p.input, name.pos, "unknown function %q", name.text)
	}

	p.next() // consume '('
	var args []expr.Expr
	if p.cur().kind != tokenCloseParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().kind != tokenComma {
				break
			}
			p.next()
		}
	}
	if p.cur().kind != tokenCloseParen {
		return nil, p.errorf("expected ')' closing %s arguments, found %s", name.text, p.cur().kind)
	}
	p.next()

	if !arityAllowed(entry, len(args)) {
		return nil, syntaxErrorf(p.input, name.pos, "function %s does not accept %d arguments", name.text, len(args))
	}
	if name.text == "replace" {
		if err := p.checkReplaceGuards(name, args); err != nil {
			return nil, err
		}
	}

	info := entry.info
	if info.ReorderArgs != nil {
		args = info.ReorderArgs(args)
	}

	// Instance functions take their subject from the first argument; static
	// functions keep the full argument list.
	if !info.Static && len(args) > 0 {
		return &expr.Call{Instance: args[0], Fn: info, Args: args[1:]}, nil
	}
	return &expr.Call{Fn: info, Args: args}, nil
}

// checkReplaceGuards enforces the two replace-specific limits: no nested
// replace invocation, and a replacement literal of at most maxReplaceLiteral
// characters. Both bound the string growth a single request can demand.
func (p *parser) checkReplaceGuards(name token, args []expr.Expr) error {
	for _, arg := range args {
		if containsReplace(arg) {
			return syntaxErrorf(p.input, name.pos, "replace cannot be nested within replace")
		}
	}
	if c, ok := args[2].(*expr.Constant); ok {
		if s, ok := c.Value.(string); ok && len(s) > maxReplaceLiteral {
			return syntaxErrorf(p.input, name.pos, "replacement value exceeds %d characters", maxReplaceLiteral)
		}
	}
	return nil
}

func containsReplace(e expr.Expr) bool {
	found := false
	expr.Rewrite(e, func(n expr.Expr) expr.Expr {
		if call, ok := n.(*expr.Call); ok && call.Fn.Name == "replace" {
			found = true
		}
		return n
	})
	return found
}
