package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []token) []tokenKind {
	out := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.kind
	}
	return out
}

func TestTokenize_Basic(t *testing.T) {
	tokens, err := tokenize("startswith(title, 'Go')")
	require.NoError(t, err)

	assert.Equal(t, []tokenKind{
		tokenIdentifier, tokenOpenParen, tokenIdentifier, tokenComma,
		tokenString, tokenCloseParen, tokenEOF,
	}, kinds(tokens))
	assert.Equal(t, "startswith", tokens[0].text)
	assert.Equal(t, "title", tokens[2].text)
	assert.Equal(t, "Go", tokens[4].text)
}

func TestTokenize_Positions(t *testing.T) {
	tokens, err := tokenize("a eq 'x'")
	require.NoError(t, err)

	assert.Equal(t, 0, tokens[0].pos)
	assert.Equal(t, 2, tokens[1].pos)
	assert.Equal(t, 5, tokens[2].pos) // the opening quote
	assert.Equal(t, 8, tokens[3].pos) // EOF sits past the input
}

func TestTokenize_StringEscapes(t *testing.T) {
	tokens, err := tokenize("'it''s'")
	require.NoError(t, err)

	require.Equal(t, tokenString, tokens[0].kind)
	assert.Equal(t, "it's", tokens[0].text)
}

func TestTokenize_EmptyString(t *testing.T) {
	tokens, err := tokenize("''")
	require.NoError(t, err)

	require.Equal(t, tokenString, tokens[0].kind)
	assert.Equal(t, "", tokens[0].text)
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, err := tokenize("title eq 'oops")
	require.Error(t, err)
	assert.True(t, IsSyntaxError(err))

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 9, se.Pos)
}

func TestTokenize_Numbers(t *testing.T) {
	testCases := []struct {
		input string
		text  string
		real  bool
	}{
		{"42", "42", false},
		{"42L", "42", false},
		{"3.14", "3.14", true},
		{"10m", "10", true},
		{"10f", "10", true},
		{"10d", "10", true},
		{"2.5F", "2.5", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			tokens, err := tokenize(tc.input)
			require.NoError(t, err)
			require.Equal(t, tokenNumber, tokens[0].kind)
			assert.Equal(t, tc.text, tokens[0].text)
			assert.Equal(t, tc.real, tokens[0].real)
		})
	}
}

func TestTokenize_MinusIsItsOwnToken(t *testing.T) {
	tokens, err := tokenize("-5")
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{tokenMinus, tokenNumber, tokenEOF}, kinds(tokens))
}

func TestTokenize_UnexpectedCharacter(t *testing.T) {
	_, err := tokenize("title eq #")
	require.Error(t, err)

	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 9, se.Pos)
	assert.Contains(t, se.Message, "unexpected character")
}

func TestTokenize_Whitespace(t *testing.T) {
	tokens, err := tokenize("  a \t eq\n 1 ")
	require.NoError(t, err)
	assert.Equal(t, []tokenKind{tokenIdentifier, tokenIdentifier, tokenNumber, tokenEOF}, kinds(tokens))
}
