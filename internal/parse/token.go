package parse

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// tokenKind classifies a scanned token.
type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdentifier
	tokenString // value holds the unescaped literal
	tokenNumber // value holds the raw digits, suffix already stripped
	tokenOpenParen
	tokenCloseParen
	tokenComma
	tokenDot
	tokenMinus
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of input"
	case tokenIdentifier:
		return "identifier"
	case tokenString:
		return "string literal"
	case tokenNumber:
		return "number"
	case tokenOpenParen:
		return "'('"
	case tokenCloseParen:
		return "')'"
	case tokenComma:
		return "','"
	case tokenDot:
		return "'.'"
	case tokenMinus:
		return "'-'"
	}
	return "unknown token"
}

// token is a single lexical element with its byte offset in the input.
type token struct {
	kind tokenKind
	text string // value text: identifier name, unescaped string, numeric digits
	pos  int
	real bool // for tokenNumber: literal contained a decimal point or real suffix
}

// tokenize scans the whole input up front. The grammar is small enough that
// a token slice beats a pull-scanner for lookahead handling.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '(':
			tokens = append(tokens, token{kind: tokenOpenParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenCloseParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ",", pos: i})
			i++
		case c == '.':
			tokens = append(tokens, token{kind: tokenDot, text: ".", pos: i})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokenMinus, text: "-", pos: i})
			i++

		case c == '\'':
			tok, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case c >= '0' && c <= '9':
			tok, next := scanNumber(input, i)
			tokens = append(tokens, tok)
			i = next

		case isIdentStart(rune(c)):
			start := i
			for i < len(input) && isIdentPart(rune(input[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdentifier, text: input[start:i], pos: start})

		default:
			r, _ := utf8.DecodeRuneInString(input[i:])
			return nil, syntaxErrorf(input, i, "unexpected character %q", r)
		}
	}
	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

// scanString scans a quoted literal starting at the opening quote. Doubled
// quotes inside the literal collapse to a single quote; this is the only
// escape the grammar has, so an attempted injection through quote characters
// always lands inside the literal value, never in the statement text.
func scanString(input string, start int) (token, int, error) {
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		if input[i] != '\'' {
			sb.WriteByte(input[i])
			i++
			continue
		}
		if i+1 < len(input) && input[i+1] == '\'' {
			sb.WriteByte('\'')
			i += 2
			continue
		}
		return token{kind: tokenString, text: sb.String(), pos: start}, i + 1, nil
	}
	return token{}, 0, syntaxErrorf(input, start, "unterminated string literal")
}

// scanNumber scans an integer or real literal. Trailing type suffixes
// (L for int64, f/m/d for real flavors) are accepted for compatibility and
// dropped: all numerics fold to one numeric domain.
func scanNumber(input string, start int) (token, int) {
	i := start
	real := false
	for i < len(input) && input[i] >= '0' && input[i] <= '9' {
		i++
	}
	if i+1 < len(input) && input[i] == '.' && input[i+1] >= '0' && input[i+1] <= '9' {
		real = true
		i++
		for i < len(input) && input[i] >= '0' && input[i] <= '9' {
			i++
		}
	}
	end := i
	if i < len(input) {
		switch input[i] {
		case 'f', 'F', 'm', 'M', 'd', 'D':
			real = true
			i++
		case 'l', 'L':
			i++
		}
	}
	return token{kind: tokenNumber, text: input[start:end], pos: start, real: real}, i
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
