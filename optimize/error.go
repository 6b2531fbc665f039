package optimize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dchest/cssopt/minifier"
)

// Name identifies this package in error messages.
const Name = "cssopt"

// Error describes a failure to process an asset.
type Error struct {
	Key     string
	Message string

	// Parse is true if the stylesheet couldn't be parsed;
	// Line and Column then point to the problem.
	Parse  bool
	Line   int
	Column int

	// Trace is a diagnostic trace for other failures.
	Trace string

	Err error
}

func newError(key string, err error) *Error {
	e := &Error{Key: key, Message: err.Error(), Err: err}
	var pe *minifier.ParseError
	var pp *panicError
	switch {
	case errors.As(err, &pe):
		e.Parse = true
		e.Message = pe.Message
		e.Line = pe.Line
		e.Column = pe.Column
	case errors.As(err, &pp):
		e.Message = fmt.Sprintf("panic: %v", pp.value)
		e.Trace = string(pp.stack)
	default:
		e.Trace = errorChain(err)
	}
	return e
}

func (e *Error) Error() string {
	prefix := e.Key + " from " + Name + "\n"
	if e.Parse {
		return fmt.Sprintf("%s%s [%s:%d:%d]", prefix, e.Message, e.Key, e.Line, e.Column)
	}
	return fmt.Sprintf("%s%s %s", prefix, e.Message, e.Trace)
}

func (e *Error) Unwrap() error { return e.Err }

// errorChain returns types of wrapped errors, outermost first.
func errorChain(err error) string {
	var types []string
	for ; err != nil; err = errors.Unwrap(err) {
		types = append(types, fmt.Sprintf("%T", err))
	}
	return "(" + strings.Join(types, " <- ") + ")"
}

type panicError struct {
	value interface{}
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
