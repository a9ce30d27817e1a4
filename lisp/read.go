package lisp

import (
	"fmt"

	lisptype "birch/lisp_type"
)

// Parser turns tokens into values allocated on the heap of env. Errors
// come back as Error values.
type Parser struct {
	lex *Lexer
	env *lisptype.Env
}

func NewParser(env *lisptype.Env, lex *Lexer) *Parser {
	return &Parser{lex: lex, env: env}
}

func (p *Parser) heap() *lisptype.Heap { return p.env.Heap() }

func (p *Parser) fail(tok Token, format string, args ...any) lisptype.Value {
	return syntaxError(p.env, tok.Line, tok.Column, fmt.Sprintf(format, args...))
}

func (p *Parser) fromErr(err error) lisptype.Value {
	return fromGo(p.env, err)
}

// wrap builds a Keyword, KeywordParam, Comma or CommaSplice around the
// next expression.
func (p *Parser) wrap(t lisptype.ValueType, tok Token, needSymbol bool) lisptype.Value {
	inner := p.ParseExpr()
	if inner.IsError() {
		return inner
	}
	if needSymbol && inner.Type != lisptype.Symbol {
		return p.fail(tok, "expected a symbol after `%s'", tok.Text)
	}
	if !needSymbol && sentinel(inner) {
		return p.fail(tok, "expected an expression after `%s'", tok.Text)
	}
	v, err := p.heap().NewWrapper(t, inner)
	if err != nil {
		return p.fromErr(err)
	}
	return v
}

// quoted builds (name x) around the next expression
func (p *Parser) quoted(name string, tok Token) lisptype.Value {
	inner := p.ParseExpr()
	if inner.IsError() {
		return inner
	}
	if sentinel(inner) {
		return p.fail(tok, "expected an expression after `%s'", tok.Text)
	}
	sym, err := symbol(p.env, name)
	if err != nil {
		return p.fromErr(err)
	}
	v, err := list(p.env, sym, inner)
	if err != nil {
		return p.fromErr(err)
	}
	return v
}

func sentinel(v lisptype.Value) bool {
	switch v.Type {
	case lisptype.RightParen, lisptype.Dot, lisptype.EndOfInput:
		return true
	}
	return false
}

// ParseExpr reads one expression. A closing paren, a lone dot and the end
// of input come back as the parser sentinels so that Parse can act on them.
func (p *Parser) ParseExpr() lisptype.Value {
	tok, err := p.lex.Next()
	if err != nil {
		return p.fromErr(err)
	}

	switch tok.Type {
	case TokEOF:
		return lisptype.EOFValue
	case TokLParen:
		return p.Parse(tok)
	case TokRParen:
		return lisptype.RParen
	case TokDot:
		return lisptype.DotValue
	case TokLBracket, TokRBracket:
		return p.fail(tok, "arrays are not supported")
	case TokQuote:
		return p.quoted("quote", tok)
	case TokBacktick:
		return p.quoted("backtick", tok)
	case TokComma:
		return p.wrap(lisptype.Comma, tok, false)
	case TokCommaSplice:
		return p.wrap(lisptype.CommaSplice, tok, false)
	case TokKeyword:
		return p.wrap(lisptype.Keyword, tok, true)
	case TokColon:
		return p.wrap(lisptype.KeywordParam, tok, true)
	case TokInt:
		return lisptype.MakeInt(tok.Int)
	case TokString:
		v, err := p.heap().NewString(tok.Str)
		if err != nil {
			return p.fromErr(err)
		}
		return v
	case TokIdent:
		v, err := p.heap().NewSymbol(tok.Text)
		if err != nil {
			return p.fromErr(err)
		}
		return v
	}
	return p.fail(tok, "unexpected `%s'", tok.Text)
}

// Parse reads the rest of a list whose opening paren, open, has already
// been consumed, up to and including the matching closing paren.
func (p *Parser) Parse(open Token) lisptype.Value {
	h := p.heap()
	head, tail := lisptype.NilValue, lisptype.NilValue

	for {
		line, column := p.lex.line, p.lex.column
		o := p.ParseExpr()

		switch o.Type {
		case lisptype.Error:
			return o
		case lisptype.EndOfInput:
			return syntaxError(p.env, open.Line, open.Column, "unmatched `('")
		case lisptype.RightParen:
			return head
		case lisptype.Dot:
			dot := Token{Line: line, Column: column}
			if head.IsNil() {
				return p.fail(dot, "unexpected `.'")
			}
			last := p.ParseExpr()
			if last.IsError() {
				return last
			}
			if sentinel(last) {
				return p.fail(dot, "expected an expression after `.'")
			}
			h.SetCdr(tail, last)
			closing := p.ParseExpr()
			if closing.IsError() {
				return closing
			}
			if closing.Type != lisptype.RightParen {
				return p.fail(dot, "expected `)' after dotted pair")
			}
			return head
		}

		cell, err := h.Cons(o, lisptype.NilValue)
		if err != nil {
			return p.fromErr(err)
		}
		if head.IsNil() {
			head = cell
		} else {
			h.SetCdr(tail, cell)
		}
		tail = cell
	}
}

// Read parses exactly one expression out of text. Trailing input after a
// complete expression is an error.
func Read(env *lisptype.Env, text string) lisptype.Value {
	lex := NewLexer(text)
	p := NewParser(env, lex)
	v := p.ParseExpr()
	switch v.Type {
	case lisptype.Error:
		return v
	case lisptype.EndOfInput:
		return env.Heap().NewErrorKind(lisptype.ParseError, "empty expression")
	case lisptype.RightParen:
		return env.Heap().NewErrorKind(lisptype.ParseError, "unexpected `)'")
	case lisptype.Dot:
		return env.Heap().NewErrorKind(lisptype.ParseError, "unexpected `.'")
	}
	if !lex.AtEnd() {
		return syntaxError(env, lex.line, lex.column, "unexpected input after a complete expression")
	}
	return v
}

// Next reads the next top level expression, as when loading a file. ok
// is false once the input is exhausted.
func (p *Parser) Next() (v lisptype.Value, ok bool, err error) {
	v = p.ParseExpr()
	switch v.Type {
	case lisptype.EndOfInput:
		return v, false, nil
	case lisptype.Error:
		return v, false, toError(p.env, v)
	case lisptype.RightParen:
		return v, false, &Error{Kind: lisptype.ParseError, Msg: "unexpected `)'"}
	case lisptype.Dot:
		return v, false, &Error{Kind: lisptype.ParseError, Msg: "unexpected `.'"}
	}
	return v, true, nil
}
