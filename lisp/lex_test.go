package lisp

import (
	"errors"
	"testing"
)

func lexAll(t *testing.T, input string) []Token {
	t.Helper()
	lex := NewLexer(input)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("lexing %q: %v", input, err)
		}
		if tok.Type == TokEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerTokenKinds(t *testing.T) {
	toks := lexAll(t, `(a 'b `+"`"+`c ~d ,e ,@f &g :h . 12 -3 - "s\n") [ ] ; comment`)
	expected := []TokenType{
		TokLParen, TokIdent, TokQuote, TokIdent, TokBacktick, TokIdent,
		TokBacktick, TokIdent, TokComma, TokIdent, TokCommaSplice, TokIdent,
		TokKeyword, TokIdent, TokColon, TokIdent, TokDot, TokInt, TokInt,
		TokIdent, TokString, TokRParen, TokLBracket, TokRBracket,
	}
	if len(toks) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(toks), toks)
	}
	for i, tok := range toks {
		if tok.Type != expected[i] {
			t.Errorf("token %d (%q): Expected type %d, got %d", i, tok.Text, expected[i], tok.Type)
		}
	}
	if toks[17].Int != 12 || toks[18].Int != -3 {
		t.Errorf("Expected 12 and -3, got %d and %d", toks[17].Int, toks[18].Int)
	}
	if toks[20].Str != "s\n" {
		t.Errorf("Expected escapes to be resolved, got %q", toks[20].Str)
	}
}

func TestLexerPositions(t *testing.T) {
	toks := lexAll(t, "(\n  foo)")
	if toks[1].Line != 2 || toks[1].Column != 3 {
		t.Errorf("Expected foo at 2:3, got %d:%d", toks[1].Line, toks[1].Column)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
	}{
		{`"abc`, "unterminated string literal"},
		{"12x", "malformed integer literal `12x'"},
		{"99999999999999999999", "integer literal `99999999999999999999' is out of range"},
	}
	for _, tt := range tests {
		lex := NewLexer(tt.input)
		_, err := lex.Next()
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("%q: Expected a SyntaxError, got %v", tt.input, err)
			continue
		}
		if se.Msg != tt.msg {
			t.Errorf("%q: Expected %q, got %q", tt.input, tt.msg, se.Msg)
		}
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		input string
		more  bool
	}{
		{"(+ 1 2)", false},
		{"(+ 1", true},
		{`(print "abc`, true},
		{"(a))", false},
		{"foo", false},
	}
	for _, tt := range tests {
		if got := incomplete(tt.input); got != tt.more {
			t.Errorf("%q: Expected %v, got %v", tt.input, tt.more, got)
		}
	}
}
