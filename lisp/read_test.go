package lisp

import (
	"strings"
	"testing"

	lisptype "birch/lisp_type"
)

func TestReadRoundTrip(t *testing.T) {
	inputs := []string{
		`42`,
		`-7`,
		`"a \"quoted\" string\nwith a newline"`,
		`foo`,
		`()`,
		`(1 "two" three (4 (5 ())) six)`,
		`(quote (a b))`,
	}
	for _, input := range inputs {
		env := newEnv()
		v := Read(env, input)
		if v.IsError() {
			t.Fatalf("%s: %s", input, env.Heap().Text(v))
		}
		printed := PrintValue(env, v)
		again := Read(env, printed)
		if !equal(env.Heap(), v, again) {
			t.Errorf("%s: Expected %s to read back equal, got %s", input, printed, PrintValue(env, again))
		}
	}
}

func TestReadSugar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"'x", "(quote x)"},
		{"`(a ,b ,@c)", "(backtick (a ,b ,@c))"},
		{"~(a ,b)", "(backtick (a ,b))"},
		{"(a . b)", "(a . b)"},
		{"(a b . c)", "(a b . c)"},
		{"(&optional :key)", "(&optional :key)"},
		{"  (a ; comment\n b)  ", "(a b)"},
	}
	for _, tt := range tests {
		env := newEnv()
		v := Read(env, tt.input)
		if v.IsError() {
			t.Errorf("%q: unexpected error %s", tt.input, env.Heap().Text(v))
			continue
		}
		if got := PrintValue(env, v); got != tt.expected {
			t.Errorf("%q: Expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		input string
		msg   string
		kind  lisptype.ErrorKind
	}{
		{"(a b", "unmatched `('", lisptype.ParseError},
		{")", "unexpected `)'", lisptype.ParseError},
		{"(. a)", "unexpected `.'", lisptype.ParseError},
		{"(a . b c)", "expected `)' after dotted pair", lisptype.ParseError},
		{"(a .)", "expected an expression after `.'", lisptype.ParseError},
		{"(& 1)", "expected a symbol after `&'", lisptype.ParseError},
		{"[1 2]", "arrays are not supported", lisptype.ParseError},
		{"(a) b", "unexpected input after a complete expression", lisptype.ParseError},
		{"", "empty expression", lisptype.ParseError},
		{`(print "abc`, "unterminated string literal", lisptype.LexError},
	}
	for _, tt := range tests {
		env := newEnv()
		v := Read(env, tt.input)
		if !v.IsError() {
			t.Errorf("%q: Expected an error, got %s", tt.input, PrintValue(env, v))
			continue
		}
		h := env.Heap()
		if !strings.Contains(h.Text(v), tt.msg) {
			t.Errorf("%q: Expected %q, got %q", tt.input, tt.msg, h.Text(v))
		}
		if h.Kind(v) != tt.kind {
			t.Errorf("%q: Expected kind %v, got %v", tt.input, tt.kind, h.Kind(v))
		}
	}
}

func TestUnmatchedParenPosition(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(1 2", "1:1: unmatched `('"},
		{"  (a (b c)", "1:3: unmatched `('"},
		{"(a\n  (b c", "2:3: unmatched `('"},
	}
	for _, tt := range tests {
		env := newEnv()
		v := Read(env, tt.input)
		if !v.IsError() {
			t.Errorf("%q: Expected an error, got %s", tt.input, PrintValue(env, v))
			continue
		}
		if got := env.Heap().Text(v); got != tt.expected {
			t.Errorf("%q: Expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestReadDoesNotConsumePastForm(t *testing.T) {
	env := newEnv()
	lex := NewLexer("(a b) (c)")
	p := NewParser(env, lex)
	first := p.ParseExpr()
	if got := PrintValue(env, first); got != "(a b)" {
		t.Fatalf("Expected (a b), got %s", got)
	}
	if lex.AtEnd() {
		t.Errorf("Expected the second form to remain")
	}
	second := p.ParseExpr()
	if got := PrintValue(env, second); got != "(c)" {
		t.Errorf("Expected (c), got %s", got)
	}
}
