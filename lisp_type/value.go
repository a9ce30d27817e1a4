package lisptype

import "fmt"

// this is the type enum for values
type ValueType int

// these are all the valid types for a value.
// Nil must stay zero so the zero Value is the empty list.
const (
	Nil          ValueType = iota // the empty list, also false
	Int                           // a 64 bit integer, stored inline
	Cell                          // links together other values
	String                        // an immutable string of characters
	Symbol                        // like a string, but used for bindings
	Builtin                       // a primitive implemented in Go
	Function                      // a user defined closure
	Macro                         // a closure whose result is evaluated again
	KeywordParam                  // :name in an argument list
	Keyword                       // &name in a parameter list
	Comma                         // ,x inside a backtick
	CommaSplice                   // ,@x inside a backtick
	True                          // the canonical non-nil boolean
	Error                         // an error message travelling as a value

	// only produced by the parser, never escape it
	RightParen
	Dot
	EndOfInput
)

var typeNames = [...]string{
	Nil:          "nil",
	Int:          "int",
	Cell:         "cell",
	String:       "string",
	Symbol:       "symbol",
	Builtin:      "builtin",
	Function:     "function",
	Macro:        "macro",
	KeywordParam: ":",
	Keyword:      "keyword",
	Comma:        ",",
	CommaSplice:  ",@",
	True:         "true",
	Error:        "error",
	RightParen:   "rparen",
	Dot:          "dot",
	EndOfInput:   "eof",
}

func (t ValueType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
	return typeNames[t]
}

// Article returns "a" or "an" for use in messages like "this is an int".
func (t ValueType) Article() string {
	switch t.String()[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}

// ErrorKind classifies an Error value by the stage that produced it.
type ErrorKind int

const (
	EvalError  ErrorKind = iota // unbound symbol, arity, type, limits
	LexError                    // malformed token
	ParseError                  // unbalanced parens, bad keyword or dot syntax
	UserError                   // raised by the error builtin
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case UserError:
		return "user error"
	}
	return "eval error"
}

// this is a value handle.
// integers and the singletons live inline, everything
// else is an index into the heap the value was allocated on.
type Value struct {
	Type    ValueType // the type of this value
	Obj     int       // heap slot, meaningless for inline types
	Integer int64     // payload of an Int
}

// singletons
var (
	NilValue    = Value{Type: Nil}
	TrueValue   = Value{Type: True}
	RParen      = Value{Type: RightParen}
	DotValue    = Value{Type: Dot}
	EOFValue    = Value{Type: EndOfInput}
	OutOfMemory = Value{Type: Error, Obj: -1}
)

func MakeInt(i int64) Value {
	return Value{Type: Int, Integer: i}
}

func Bool(b bool) Value {
	if b {
		return TrueValue
	}
	return NilValue
}

func (v Value) IsNil() bool   { return v.Type == Nil }
func (v Value) IsError() bool { return v.Type == Error }
func (v Value) Truthy() bool  { return v.Type != Nil }

// IsList reports whether v is list shaped (a cell or the empty list).
func (v Value) IsList() bool { return v.Type == Nil || v.Type == Cell }

// onHeap reports whether the value refers to a heap slot.
func (v Value) onHeap() bool {
	switch v.Type {
	case Cell, String, Symbol, Builtin, Function, Macro,
		KeywordParam, Keyword, Comma, CommaSplice:
		return true
	case Error:
		return v.Obj >= 0
	}
	return false
}

// Same reports handle identity: same type and same slot, or the same
// integer for inline integers.
func (v Value) Same(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Int:
		return v.Integer == o.Integer
	case Nil, True, RightParen, Dot, EndOfInput:
		return true
	}
	return v.Obj == o.Obj
}
