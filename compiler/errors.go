package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is a single reported compile error.
type Diagnostic struct {
	Line    int
	Column  int       // 1-based byte column of the offending token
	Kind    TokenKind // kind of the offending token
	Lexeme  string    // offending token text; empty for EOF and error tokens
	Message string
}

// String renders the diagnostic in the form written to the error stream:
//
//	[line 1] Error near ')': Expect expression.
//	[line 1] Error at end: Expect ')' after expression.
func (d Diagnostic) String() string {
	var where string
	switch d.Kind {
	case TokenEOF:
		where = " at end"
	case TokenError:
	default:
		where = fmt.Sprintf(" near '%s'", d.Lexeme)
	}
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, where, d.Message)
}

// Error is returned by Compile when any diagnostic was reported. The chunk
// passed to Compile must not be executed.
type Error struct {
	Diagnostics []Diagnostic
}

func (e *Error) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// AsError extracts the compile error from err, if it is one.
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
