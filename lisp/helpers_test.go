package lisp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	lisptype "birch/lisp_type"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newInterp(t *testing.T, opts Options) *Interpreter {
	t.Helper()
	opts.Logger = quietLogger()
	in, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return in
}

// mustEval evaluates text in the global frame and fails the test on an
// error.
func mustEval(t *testing.T, in *Interpreter, text string) string {
	t.Helper()
	out, err := in.Evaluate(context.Background(), in.Global(), text)
	if err != nil {
		t.Fatalf("%s: unexpected %v", text, err)
	}
	return out
}

// evalError evaluates text and returns the error it must produce.
func evalError(t *testing.T, in *Interpreter, text string) *Error {
	t.Helper()
	out, err := in.Evaluate(context.Background(), in.Global(), text)
	if err == nil {
		t.Fatalf("%s: expected an error, got %s", text, out)
	}
	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("%s: expected *Error, got %T", text, err)
	}
	return lerr
}

func want(t *testing.T, in *Interpreter, text, expected string) {
	t.Helper()
	if got := mustEval(t, in, text); got != expected {
		t.Errorf("%s: Expected %s, got %s", text, expected, got)
	}
}

func wantError(t *testing.T, in *Interpreter, text, msg string) {
	t.Helper()
	if got := evalError(t, in, text); got.Msg != msg {
		t.Errorf("%s: Expected error %q, got %q", text, msg, got.Msg)
	}
}

func newEnv() *lisptype.Env {
	return lisptype.NewGlobalEnv(lisptype.NewHeap(0))
}
