package lisp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lisptype "birch/lisp_type"
)

func TestListBuiltins(t *testing.T) {
	in := newInterp(t, Options{})
	tests := []struct {
		expr     string
		expected string
	}{
		{"(list 1 2 3)", "(1 2 3)"},
		{"(list)", "()"},
		{"(cons 1 2)", "(1 . 2)"},
		{"(cons 1 nil)", "(1)"},
		{"(car '(1 2))", "1"},
		{"(cdr '(1 2))", "(2)"},
		{"(car nil)", "()"},
		{"(cdr nil)", "()"},
		{"(nth '(a b c) 1)", "b"},
		{"(nth '(a b c) 5)", "()"},
		{`(nth "héllo" 1)`, `"é"`},
		{"(length '(1 2 3))", "3"},
		{"(length nil)", "0"},
		{`(length "héllo")`, "5"},
		{"(append '(1 2) '(3) nil '(4 5))", "(1 2 3 4 5)"},
		{"(append)", "()"},
		{"(append '(1) 2)", "(1 . 2)"},
	}
	for _, tt := range tests {
		want(t, in, tt.expr, tt.expected)
	}
}

func TestListBuiltinErrors(t *testing.T) {
	in := newInterp(t, Options{})
	wantError(t, in, "(car 1)", "builtin `car' requires a list argument (this is an int)")
	wantError(t, in, "(car)", "builtin `car' takes 1 argument")
	wantError(t, in, "(cons 1)", "builtin `cons' takes 2 arguments")
	wantError(t, in, "(length '(1 . 2))", "builtin `length' requires a proper list")
	wantError(t, in, "(nth '(1) -1)", "builtin `nth' index -1 is negative")
	wantError(t, in, "(nth 5 0)", "builtin `nth' requires a list or string argument (this is an int)")
	wantError(t, in, "(append 1 '(2))", "builtin `append' requires proper list arguments (this is an int)")
}

func TestEquality(t *testing.T) {
	in := newInterp(t, Options{})
	mustEval(t, in, "(setq l '(1 2))")
	tests := []struct {
		expr     string
		expected string
	}{
		{"(eq 'a 'a)", "t"},
		{"(eq 1 1)", "t"},
		{"(eq 1 2)", "()"},
		{"(eq l l)", "t"},
		{"(eq '(1) '(1))", "()"},
		{`(eq "a" "a")`, "()"},
		{"(eq nil nil)", "t"},
		{"(eq 1 'a)", "()"},
		{"(equal '(1 (2 \"x\")) '(1 (2 \"x\")))", "t"},
		{"(equal '(1 2) '(1 2 3))", "()"},
		{"(equal 'a 'a)", "t"},
		{"(not nil)", "t"},
		{"(not 0)", "()"},
	}
	for _, tt := range tests {
		want(t, in, tt.expr, tt.expected)
	}
}

func TestTypeOf(t *testing.T) {
	in := newInterp(t, Options{})
	tests := []struct {
		expr     string
		expected string
	}{
		{"(type-of 1)", "int"},
		{`(type-of "s")`, "string"},
		{"(type-of 'a)", "symbol"},
		{"(type-of '(1))", "cell"},
		{"(type-of nil)", "null"},
		{"(type-of t)", "true"},
		{"(type-of car)", "builtin"},
		{"(type-of (lambda () 1))", "function"},
		{"(type-of ':k)", "keyword-param"},
	}
	for _, tt := range tests {
		want(t, in, tt.expr, tt.expected)
	}
}

func TestControlFlow(t *testing.T) {
	in := newInterp(t, Options{})
	tests := []struct {
		expr     string
		expected string
	}{
		{"(if t 1 2)", "1"},
		{"(if nil 1 2 3)", "3"},
		{"(if nil 1)", "()"},
		{"(cond ((= 1 2) 'a) ((= 1 1) 'b))", "b"},
		{"(cond (nil 1))", "()"},
		{"(cond ((+ 1 1)))", "2"},
		{"(and 1 2 3)", "3"},
		{"(and 1 nil undefined)", "()"},
		{"(and)", "t"},
		{"(or nil 2 undefined)", "2"},
		{"(or)", "()"},
		{"(progn 1 2 3)", "3"},
		{"(progn)", "()"},
		{"(let ((a 1) (b (+ a 1)) c) (list a b c))", "(1 2 ())"},
		{"(let ((i 0) (sum 0)) (while (< i 5) (setq sum (+ sum i)) (setq i (+ i 1))) sum)", "10"},
	}
	for _, tt := range tests {
		want(t, in, tt.expr, tt.expected)
	}
	wantError(t, in, "(if t)", "builtin `if' takes a condition and a branch")
	wantError(t, in, "(let (1) 1)", "builtin `let' requires symbol names (this is an int)")
}

func TestBindingBuiltins(t *testing.T) {
	in := newInterp(t, Options{})
	want(t, in, "(setq a 1 b 2)", "2")
	want(t, in, "(list a b)", "(1 2)")
	wantError(t, in, "(setq a)", "builtin `setq' takes at least 2 arguments")
	wantError(t, in, "(setq a 1 b)", "builtin `setq' takes pairs of names and values")

	// def always writes the global frame
	mustEval(t, in, "(defun make-global () (def made 7))")
	mustEval(t, in, "(make-global)")
	want(t, in, "made", "7")
}

func TestMetaBuiltins(t *testing.T) {
	in := newInterp(t, Options{})
	want(t, in, "(eval '(+ 1 2))", "3")
	want(t, in, `(eval (read-string "(* 2 21)"))`, "42")
	want(t, in, "(apply + '(1 2 3))", "6")
	want(t, in, "(apply list '(a (b)))", "(a (b))")
	want(t, in, `(print "a" 1 'b "c")`, `"a1bc"`)
	want(t, in, "(print '(1 \"x\"))", `"(1 \"x\")"`)
	want(t, in, "(length (uuid))", "36")
	wantError(t, in, "(read-string 1)", "builtin `read-string' requires a string argument (this is an int)")

	g1 := mustEval(t, in, "(gensym)")
	g2 := mustEval(t, in, "(gensym)")
	if g1 == g2 || !strings.HasPrefix(g1, "g__") {
		t.Errorf("Expected two distinct generated symbols, got %s and %s", g1, g2)
	}
}

func TestErrorBuiltins(t *testing.T) {
	in := newInterp(t, Options{})
	err := evalError(t, in, `(error "bad value: " 42)`)
	if err.Msg != "bad value: 42" || err.Kind != lisptype.UserError {
		t.Errorf("Expected user error \"bad value: 42\", got %v %q", err.Kind, err.Msg)
	}
	want(t, in, "(with-demoted-errors (car 1))", `"error: builtin `+"`car'"+` requires a list argument (this is an int)"`)
	want(t, in, "(with-demoted-errors 1 2)", "2")

	// the first error wins and later arguments are not evaluated
	mustEval(t, in, "(setq hits 0)")
	evalError(t, in, "(list (error \"first\") (setq hits 1))")
	want(t, in, "hits", "0")
}

func TestChannelBuiltin(t *testing.T) {
	in := newInterp(t, Options{})
	mustEval(t, in, `(channel "irc.example.net/#lisp" (setq topic "lisp"))`)
	out, err := in.Evaluate(context.Background(), in.Channel("irc.example.net", "#lisp"), "topic")
	if err != nil || out != `"lisp"` {
		t.Errorf("Expected \"lisp\" in the channel, got %s %v", out, err)
	}
	wantError(t, in, "topic", "undeclared identifier `topic'")
	wantError(t, in, `(channel "nope" 1)`, "malformed channel descriptor `nope'")
	want(t, in, `(channel "global" (+ 1 1))`, "2")
}

func TestSaveBuiltin(t *testing.T) {
	in := newInterp(t, Options{})
	wantError(t, in, "(save)", "no state file configured")

	path := filepath.Join(t.TempDir(), "state.lisp")
	in = newInterp(t, Options{StatePath: path})
	mustEval(t, in, "(setq kept 5)")
	want(t, in, "(save)", "t")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "(setq kept '5)\n" {
		t.Errorf("Expected the saved binding, got %q", data)
	}
}
