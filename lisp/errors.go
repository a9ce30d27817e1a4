package lisp

import (
	"errors"
	"fmt"

	lisptype "birch/lisp_type"
)

// Error is an Error value that escaped to the host, with the stage that
// produced it.
type Error struct {
	Kind lisptype.ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return "error: " + e.Msg
}

// errorValue makes an evaluation error
func errorValue(env *lisptype.Env, msg string) lisptype.Value {
	return env.Heap().NewError(msg)
}

func errorf(env *lisptype.Env, format string, args ...any) lisptype.Value {
	return env.Heap().NewError(fmt.Sprintf(format, args...))
}

// syntaxError makes a parse error carrying the position it happened at.
func syntaxError(env *lisptype.Env, line, column int, msg string) lisptype.Value {
	e := &SyntaxError{Line: line, Column: column, Msg: msg}
	return env.Heap().NewErrorKind(lisptype.ParseError, e.Error())
}

// fromGo turns a Go error from the heap or the lexer into an Error value.
func fromGo(env *lisptype.Env, err error) lisptype.Value {
	if errors.Is(err, lisptype.ErrOutOfMemory) {
		return lisptype.OutOfMemory
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return env.Heap().NewErrorKind(lisptype.LexError, se.Error())
	}
	return errorValue(env, err.Error())
}

// toError converts an Error value for callers outside the interpreter.
func toError(env *lisptype.Env, v lisptype.Value) *Error {
	h := env.Heap()
	return &Error{Kind: h.Kind(v), Msg: h.Text(v)}
}

// typeError reports a value of the wrong type, e.g.
// "builtin `car' requires a list argument (this is an int)".
func typeError(env *lisptype.Env, name, want string, got lisptype.Value) lisptype.Value {
	return errorf(env, "builtin `%s' requires %s (this is %s %s)",
		name, want, got.Type.Article(), got.Type)
}

func symbol(env *lisptype.Env, name string) (lisptype.Value, error) {
	return env.Heap().NewSymbol(name)
}

// list builds a proper list out of vals
func list(env *lisptype.Env, vals ...lisptype.Value) (lisptype.Value, error) {
	return env.Heap().FromSlice(vals)
}
