package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	ErrEmptyInput           = errors.New("plan input is empty")
	ErrTooFewLines          = errors.New("plan must have at least 3 lines: steps, sessions, limits")
	ErrInvalidStep          = errors.New("invalid steps format")
	ErrCountMismatch        = errors.New("steps count doesn't match sessions count")
	ErrNoLimitsLine         = errors.New("could not find valid limits line")
	ErrInvalidLimit         = errors.New("invalid limits format")
	ErrInvalidPause         = errors.New("invalid paused interval format")
	ErrInvalidDrops         = errors.New("number of drops must be positive")
	ErrUnsatisfiableSession = errors.New("paused intervals cover every position up to the limit")
)

// ParseError describes malformed plan input. Line and Column are 1-based and
// zero when they do not apply.
type ParseError struct {
	Line   int
	Column int
	Token  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SessionError reports a generation failure for one session.
type SessionError struct {
	Index int
	Name  string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}
