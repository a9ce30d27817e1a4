package lisp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type TokenType int

const (
	TokEOF TokenType = iota
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokQuote       // '
	TokBacktick    // ` or ~
	TokComma       // ,
	TokCommaSplice // ,@
	TokKeyword     // &
	TokColon       // :
	TokDot         // . on its own
	TokInt
	TokString
	TokIdent
)

type Token struct {
	Type   TokenType
	Text   string // raw text of the token
	Str    string // contents of a string literal, escapes resolved
	Int    int64
	Line   int
	Column int
}

// SyntaxError is a lexing or parsing error with the position it happened at.
type SyntaxError struct {
	Line, Column int
	Msg          string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

type Lexer struct {
	input  []rune
	pos    int
	line   int
	column int
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input), line: 1, column: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r := l.input[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

// whitespace and ; comments up to the end of the line
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		c := l.peek()
		if c == ';' {
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		} else if unicode.IsSpace(c) {
			l.advance()
		} else {
			break
		}
	}
}

// delimiters end identifiers and numbers
func isDelimiter(c rune) bool {
	switch c {
	case '(', ')', '[', ']', '\'', '`', '~', ',', '"', ';':
		return true
	}
	return unicode.IsSpace(c)
}

func (l *Lexer) errorf(line, column int, format string, args ...any) error {
	return &SyntaxError{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// Next returns the next token. At the end of input it keeps returning a
// TokEOF token.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}
	if l.pos >= len(l.input) {
		tok.Type = TokEOF
		return tok, nil
	}

	c := l.advance()
	tok.Text = string(c)

	switch c {
	case '(':
		tok.Type = TokLParen
	case ')':
		tok.Type = TokRParen
	case '[':
		tok.Type = TokLBracket
	case ']':
		tok.Type = TokRBracket
	case '\'':
		tok.Type = TokQuote
	case '`', '~':
		tok.Type = TokBacktick
	case ',':
		tok.Type = TokComma
		if l.peek() == '@' {
			l.advance()
			tok.Type = TokCommaSplice
			tok.Text = ",@"
		}
	case '&':
		tok.Type = TokKeyword
	case ':':
		tok.Type = TokColon
	case '"':
		return l.readString(tok)
	default:
		var sb strings.Builder
		sb.WriteRune(c)
		for l.pos < len(l.input) && !isDelimiter(l.peek()) {
			sb.WriteRune(l.advance())
		}
		tok.Text = sb.String()
		return l.classify(tok)
	}
	return tok, nil
}

func (l *Lexer) readString(tok Token) (Token, error) {
	var raw, sb strings.Builder
	raw.WriteRune('"')
	for {
		if l.pos >= len(l.input) {
			return tok, l.errorf(tok.Line, tok.Column, "unterminated string literal")
		}
		c := l.advance()
		raw.WriteRune(c)
		if c == '"' {
			break
		}
		if c != '\\' {
			sb.WriteRune(c)
			continue
		}
		if l.pos >= len(l.input) {
			return tok, l.errorf(tok.Line, tok.Column, "unterminated string literal")
		}
		e := l.advance()
		raw.WriteRune(e)
		switch e {
		case 'n':
			sb.WriteRune('\n')
		case 't':
			sb.WriteRune('\t')
		case 'r':
			sb.WriteRune('\r')
		default:
			// \" \\ and anything unknown stand for themselves
			sb.WriteRune(e)
		}
	}
	tok.Type = TokString
	tok.Text = raw.String()
	tok.Str = sb.String()
	return tok, nil
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// classify decides whether a bare word is a number, a lone dot or an
// identifier.
func (l *Lexer) classify(tok Token) (Token, error) {
	text := tok.Text
	if text == "." {
		tok.Type = TokDot
		return tok, nil
	}

	digits := text
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if digits == "" || !isDigit(digits[0]) {
		tok.Type = TokIdent
		return tok, nil
	}

	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return tok, l.errorf(tok.Line, tok.Column, "malformed integer literal `%s'", text)
		}
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return tok, l.errorf(tok.Line, tok.Column, "integer literal `%s' is out of range", text)
	}
	tok.Type = TokInt
	tok.Int = n
	return tok, nil
}

// AtEnd reports whether only whitespace and comments remain.
func (l *Lexer) AtEnd() bool {
	l.skipWhitespace()
	return l.pos >= len(l.input)
}
