package lisp

import (
	"strconv"
	"strings"

	lisptype "birch/lisp_type"
)

// escapes special characters in string
func stringify(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	s = strings.ReplaceAll(s, "\r", "\\r")
	return s
}

type printer struct {
	h  *lisptype.Heap
	sb strings.Builder
}

// print out each element in the list
// with special logic for dotted pairs
func (p *printer) list(v lisptype.Value) {
	p.sb.WriteByte('(')
	p.value(p.h.Car(v))
	for v = p.h.Cdr(v); v.Type == lisptype.Cell; v = p.h.Cdr(v) {
		p.sb.WriteByte(' ')
		p.value(p.h.Car(v))
	}
	if v.Type != lisptype.Nil {
		p.sb.WriteString(" . ")
		p.value(v)
	}
	p.sb.WriteByte(')')
}

// converts a value to its textual form recursively
func (p *printer) value(v lisptype.Value) {
	h := p.h
	switch v.Type {
	case lisptype.Nil:
		p.sb.WriteString("()")
	case lisptype.True:
		p.sb.WriteString("t")
	case lisptype.Int:
		p.sb.WriteString(strconv.FormatInt(v.Integer, 10))
	case lisptype.String:
		p.sb.WriteString("\"" + stringify(h.Text(v)) + "\"")
	case lisptype.Symbol:
		p.sb.WriteString(h.Text(v))
	case lisptype.Cell:
		p.list(v)
	case lisptype.Builtin:
		p.sb.WriteString("<builtin:" + h.Primitive(v).Name + ">")
	case lisptype.Function, lisptype.Macro:
		kind := "function"
		if v.Type == lisptype.Macro {
			kind = "macro"
		}
		if name := h.Closure(v).Name; name != "" {
			p.sb.WriteString("<" + kind + " " + name + ">")
		} else {
			p.sb.WriteString("<anonymous " + kind + ">")
		}
	case lisptype.Keyword:
		p.sb.WriteByte('&')
		p.value(h.Inner(v))
	case lisptype.KeywordParam:
		p.sb.WriteByte(':')
		p.value(h.Inner(v))
	case lisptype.Comma:
		p.sb.WriteByte(',')
		p.value(h.Inner(v))
	case lisptype.CommaSplice:
		p.sb.WriteString(",@")
		p.value(h.Inner(v))
	case lisptype.Error:
		p.sb.WriteString("error: " + h.Text(v))
	case lisptype.RightParen:
		p.sb.WriteString(")")
	case lisptype.Dot:
		p.sb.WriteString(".")
	case lisptype.EndOfInput:
		p.sb.WriteString("<end of input>")
	default:
		p.sb.WriteString("<" + v.Type.String() + ">")
	}
}

// PrintValue renders v the way it would be written in source, except
// that functions, macros and builtins have no readable form.
func PrintValue(env *lisptype.Env, v lisptype.Value) string {
	p := &printer{h: env.Heap()}
	p.value(v)
	return p.sb.String()
}

// Display is PrintValue except that strings come out without quotes,
// which is what print and error use to build messages.
func Display(env *lisptype.Env, v lisptype.Value) string {
	if v.Type == lisptype.String {
		return env.Heap().Text(v)
	}
	return PrintValue(env, v)
}

// source renders a closure as the form that would define it again
func source(env *lisptype.Env, name string, v lisptype.Value) string {
	h := env.Heap()
	c := h.Closure(v)
	p := &printer{h: h}

	if v.Type == lisptype.Macro {
		p.sb.WriteString("(defmacro ")
	} else {
		p.sb.WriteString("(defun ")
	}
	p.sb.WriteString(name)
	p.sb.WriteString(" (")

	// Params holds every name in declaration order, required ones first
	params, _ := h.ToSlice(c.Params)
	optional, _ := h.ToSlice(c.Optional)
	key, _ := h.ToSlice(c.Key)
	required := params[:len(params)-len(optional)-len(key)]

	var parts []string
	for _, sym := range required {
		parts = append(parts, h.Text(sym))
	}
	section := func(marker string, defaults []lisptype.Value) {
		if len(defaults) == 0 {
			return
		}
		parts = append(parts, marker)
		for _, pair := range defaults {
			sym, def := h.Car(pair), h.Cdr(pair)
			if def.IsNil() {
				parts = append(parts, h.Text(sym))
				continue
			}
			parts = append(parts, "("+h.Text(sym)+" "+PrintValue(env, def)+")")
		}
	}
	section("&optional", optional)
	section("&key", key)
	if !c.Rest.IsNil() {
		parts = append(parts, "&rest", h.Text(c.Rest))
	}
	p.sb.WriteString(strings.Join(parts, " "))
	p.sb.WriteByte(')')

	if !c.Docstring.IsNil() {
		p.sb.WriteByte(' ')
		p.value(c.Docstring)
	}
	for b := c.Body; b.Type == lisptype.Cell; b = h.Cdr(b) {
		p.sb.WriteByte(' ')
		p.value(h.Car(b))
	}
	p.sb.WriteByte(')')
	return p.sb.String()
}
