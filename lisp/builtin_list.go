package lisp

import (
	lisptype "birch/lisp_type"
)

func builtinList(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return evalList(env, args)
}

// evalN evaluates exactly n arguments for the builtin called name
func evalN(env *lisptype.Env, name string, args lisptype.Value, n int) ([]lisptype.Value, lisptype.Value) {
	if _, errv := checkArgs(env, name, args, n, n); errv.IsError() {
		return nil, errv
	}
	return evalArgs(env, args)
}

func builtinCons(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "cons", args, 2)
	if errv.IsError() {
		return errv
	}
	cell, err := env.Heap().Cons(vals[0], vals[1])
	if err != nil {
		return fromGo(env, err)
	}
	return cell
}

// car and cdr of the empty list are the empty list
func builtinCar(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "car", args, 1)
	if errv.IsError() {
		return errv
	}
	if !vals[0].IsList() {
		return typeError(env, "car", "a list argument", vals[0])
	}
	return env.Heap().Car(vals[0])
}

func builtinCdr(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "cdr", args, 1)
	if errv.IsError() {
		return errv
	}
	if !vals[0].IsList() {
		return typeError(env, "cdr", "a list argument", vals[0])
	}
	return env.Heap().Cdr(vals[0])
}

// (nth sequence index) indexes a list or the characters of a string.
// An index past the end gives nil.
func builtinNth(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "nth", args, 2)
	if errv.IsError() {
		return errv
	}
	seq, idx := vals[0], vals[1]
	if idx.Type != lisptype.Int {
		return typeError(env, "nth", "a numeric second argument", idx)
	}
	if idx.Integer < 0 {
		return errorf(env, "builtin `nth' index %d is negative", idx.Integer)
	}

	h := env.Heap()
	switch seq.Type {
	case lisptype.Nil, lisptype.Cell:
		for i := int64(0); seq.Type == lisptype.Cell; i, seq = i+1, h.Cdr(seq) {
			if i == idx.Integer {
				return h.Car(seq)
			}
		}
		return lisptype.NilValue
	case lisptype.String:
		runes := []rune(h.Text(seq))
		if idx.Integer >= int64(len(runes)) {
			return lisptype.NilValue
		}
		s, err := h.NewString(string(runes[idx.Integer]))
		if err != nil {
			return fromGo(env, err)
		}
		return s
	}
	return typeError(env, "nth", "a list or string argument", seq)
}

func builtinLength(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "length", args, 1)
	if errv.IsError() {
		return errv
	}
	h := env.Heap()
	switch v := vals[0]; v.Type {
	case lisptype.Nil, lisptype.Cell:
		n, ok := h.ListLength(v)
		if !ok {
			return errorValue(env, "builtin `length' requires a proper list")
		}
		return lisptype.MakeInt(int64(n))
	case lisptype.String:
		return lisptype.MakeInt(int64(len([]rune(h.Text(v)))))
	default:
		return typeError(env, "length", "a list or string argument", v)
	}
}

// (append list...) copies every list but the last, which becomes the
// shared tail of the result
func builtinAppend(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalArgs(env, args)
	if errv.IsError() {
		return errv
	}
	if len(vals) == 0 {
		return lisptype.NilValue
	}
	h := env.Heap()
	items := make([]lisptype.Value, 0)
	for _, v := range vals[:len(vals)-1] {
		elems, ok := h.ToSlice(v)
		if !ok {
			return typeError(env, "append", "proper list arguments", v)
		}
		items = append(items, elems...)
	}
	l, err := h.FromSliceTail(items, vals[len(vals)-1])
	if err != nil {
		return fromGo(env, err)
	}
	return l
}

// eq compares by type and then by handle, or by value for integers.
// Symbols compare by name.
func eq(h *lisptype.Heap, a, b lisptype.Value) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == lisptype.Symbol {
		return h.Text(a) == h.Text(b)
	}
	return a.Same(b)
}

// equal is deep structural equality
func equal(h *lisptype.Heap, a, b lisptype.Value) bool {
	for {
		if a.Type != b.Type {
			return false
		}
		switch a.Type {
		case lisptype.String, lisptype.Symbol, lisptype.Error:
			return h.Text(a) == h.Text(b)
		case lisptype.Keyword, lisptype.KeywordParam, lisptype.Comma, lisptype.CommaSplice:
			a, b = h.Inner(a), h.Inner(b)
			continue
		case lisptype.Cell:
			if !equal(h, h.Car(a), h.Car(b)) {
				return false
			}
			a, b = h.Cdr(a), h.Cdr(b)
			continue
		}
		return a.Same(b)
	}
}

func builtinEq(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "eq", args, 2)
	if errv.IsError() {
		return errv
	}
	return lisptype.Bool(eq(env.Heap(), vals[0], vals[1]))
}

func builtinEqual(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "equal", args, 2)
	if errv.IsError() {
		return errv
	}
	return lisptype.Bool(equal(env.Heap(), vals[0], vals[1]))
}

func builtinNot(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "not", args, 1)
	if errv.IsError() {
		return errv
	}
	return lisptype.Bool(!vals[0].Truthy())
}

// names type-of gives back, where the type enum's own name is not a
// usable symbol
var typeSymbols = map[lisptype.ValueType]string{
	lisptype.Nil:          "null",
	lisptype.KeywordParam: "keyword-param",
	lisptype.Comma:        "comma",
	lisptype.CommaSplice:  "comma-splice",
}

func builtinTypeOf(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalN(env, "type-of", args, 1)
	if errv.IsError() {
		return errv
	}
	t := vals[0].Type
	name, ok := typeSymbols[t]
	if !ok {
		name = t.String()
	}
	sym, err := symbol(env, name)
	if err != nil {
		return fromGo(env, err)
	}
	return sym
}
