package lisp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	lisptype "birch/lisp_type"
)

// bindingForms renders the bindings of one frame as source, oldest first.
// Shadowed bindings, builtins, errors and structures holding any of
// those or a closure have nothing to restore.
func bindingForms(env *lisptype.Env) []string {
	h := env.Heap()
	seen := make(map[string]bool)
	var binds []lisptype.Value
	for c := env.Vars; c.Type == lisptype.Cell; c = h.Cdr(c) {
		bind := h.Car(c)
		name := h.Text(h.Car(bind))
		if seen[name] {
			continue
		}
		seen[name] = true
		binds = append(binds, bind)
	}

	forms := make([]string, 0, len(binds))
	for i := len(binds) - 1; i >= 0; i-- {
		name, val := h.Text(h.Car(binds[i])), h.Cdr(binds[i])
		switch val.Type {
		case lisptype.Builtin, lisptype.Error:
			continue
		case lisptype.Function, lisptype.Macro:
			forms = append(forms, source(env, name, val))
		default:
			if !readable(h, val) {
				continue
			}
			forms = append(forms, "(setq "+name+" '"+PrintValue(env, val)+")")
		}
	}
	return forms
}

// readable reports whether v prints as source that reads back as an
// equal value. Callables and errors nested in a structure do not.
func readable(h *lisptype.Heap, v lisptype.Value) bool {
	for {
		switch v.Type {
		case lisptype.Cell:
			if !readable(h, h.Car(v)) {
				return false
			}
			v = h.Cdr(v)
		case lisptype.Keyword, lisptype.KeywordParam, lisptype.Comma, lisptype.CommaSplice:
			v = h.Inner(v)
		case lisptype.Builtin, lisptype.Function, lisptype.Macro, lisptype.Error:
			return false
		default:
			return true
		}
	}
}

// WriteState writes the bindings of the global frame of env and of every
// channel frame as a source file that LoadState reads back.
func WriteState(env *lisptype.Env, w io.Writer) error {
	root := env.Root()
	bw := bufio.NewWriter(w)
	for _, form := range bindingForms(root) {
		fmt.Fprintln(bw, form)
	}

	keys := make([]string, 0, len(root.G.Channels))
	for key := range root.G.Channels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		forms := bindingForms(root.G.Channels[key])
		if len(forms) == 0 {
			continue
		}
		fmt.Fprintf(bw, "(channel \"%s\"", stringify(key))
		for _, form := range forms {
			fmt.Fprintf(bw, "\n  %s", form)
		}
		fmt.Fprintln(bw, ")")
	}
	return bw.Flush()
}

// saveFile writes the state next to path and renames it into place, so a
// failed save leaves the previous file alone.
func saveFile(env *lisptype.Env, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteState(env, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadState evaluates every form of r in the global frame of env. It
// stops at the first form that fails and returns the number of forms
// evaluated before it.
func LoadState(env *lisptype.Env, r io.Reader) (int, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	root := env.Root()
	p := NewParser(root, NewLexer(string(src)))
	n := 0
	for {
		form, ok, err := p.Next()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		if v := Eval(root, form); v.IsError() {
			return n, toError(root, v)
		}
		n++
	}
}
