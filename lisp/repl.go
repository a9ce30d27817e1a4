package lisp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peterh/liner"

	lisptype "birch/lisp_type"
)

const (
	prompt       = "birch> "
	continuation = "...... "
)

// incomplete reports whether text ends inside a list or a string, so
// the REPL should read another line before evaluating.
func incomplete(text string) bool {
	lex := NewLexer(text)
	depth := 0
	for {
		tok, err := lex.Next()
		if err != nil {
			var se *SyntaxError
			return errors.As(err, &se) && se.Msg == "unterminated string literal"
		}
		switch tok.Type {
		case TokEOF:
			return depth > 0
		case TokLParen:
			depth++
		case TokRParen:
			depth--
		}
	}
}

// Repl reads expressions from the terminal and evaluates them in env
// until end of input. Ctrl-C abandons the expression being typed. A
// positive timeout bounds each evaluation.
func Repl(ctx context.Context, in *Interpreter, env *lisptype.Env, out io.Writer, timeout time.Duration) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintf(out, "birch interactive session, channel %s/%s\n", env.Server, env.Channel)
	var pending strings.Builder
	for {
		p := prompt
		if pending.Len() > 0 {
			p = continuation
		}
		input, err := line.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			pending.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}

		if pending.Len() > 0 {
			pending.WriteByte('\n')
		}
		pending.WriteString(input)
		text := pending.String()
		if strings.TrimSpace(text) == "" {
			pending.Reset()
			continue
		}
		if incomplete(text) {
			continue
		}
		pending.Reset()
		line.AppendHistory(text)

		evalCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			evalCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		result, _ := in.Evaluate(evalCtx, env, text)
		cancel()
		fmt.Fprintln(out, result)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
