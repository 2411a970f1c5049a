package sqlgen

import (
	"errors"
	"fmt"
)

// MaxIdentifierLength is the longest identifier accepted anywhere a
// caller-supplied name becomes part of statement text.
const MaxIdentifierLength = 128

// IdentifierError reports a table or column name that failed validation.
// The surrounding layer surfaces it as bad input, never as a server error.
type IdentifierError struct {
	Name string
}

// Error implements the error interface.
func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: identifiers must start with a letter or underscore, contain only letters, digits, and underscores, and be at most %d characters", e.Name, MaxIdentifierLength)
}

// IsIdentifierError reports whether err is (or wraps) an *IdentifierError.
func IsIdentifierError(err error) bool {
	var ie *IdentifierError
	return errors.As(err, &ie)
}

// ValidateIdentifier enforces the identifier safety contract: an ASCII
// letter or underscore start, letters/digits/underscores after, length at
// most MaxIdentifierLength. Every caller-supplied string that becomes part
// of SQL text must pass through here first; values never do, they bind as
// parameters.
func ValidateIdentifier(name string) error {
	if name == "" || len(name) > MaxIdentifierLength {
		return &IdentifierError{Name: name}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return &IdentifierError{Name: name}
			}
		default:
			return &IdentifierError{Name: name}
		}
	}
	return nil
}

// Bracket returns the delimited form of a previously validated identifier.
func Bracket(name string) string {
	return "[" + name + "]"
}
