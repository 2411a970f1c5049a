package parse

import (
	"errors"
	"fmt"
)

// SyntaxError reports malformed filter or order-by text. Pos is the byte
// offset into Input at which scanning or parsing stopped.
type SyntaxError struct {
	Input   string
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Message)
}

// IsSyntaxError reports whether err is (or wraps) a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

func syntaxErrorf(input string, pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Input:   input,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}
