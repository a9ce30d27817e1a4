package lisp

import (
	lisptype "birch/lisp_type"
)

// Eval evaluates v in env. Errors are returned as Error values, never
// panics; the first error met stops evaluation and is passed up.
func Eval(env *lisptype.Env, v lisptype.Value) lisptype.Value {
	g := env.G
	if err := g.Context.Err(); err != nil {
		return errorf(env, "evaluation cancelled: %v", err)
	}
	g.Depth++
	defer func() { g.Depth-- }()
	if g.RecursionLimit > 0 && g.Depth > g.RecursionLimit {
		return errorValue(env, "maximum recursion depth exceeded")
	}

	h := env.Heap()
	switch v.Type {
	// these evaluate to themselves
	case lisptype.Int, lisptype.String, lisptype.Builtin,
		lisptype.Function, lisptype.Macro, lisptype.Error,
		lisptype.True, lisptype.Nil,
		lisptype.Keyword, lisptype.KeywordParam:
		return v

	case lisptype.Comma, lisptype.CommaSplice:
		return errorValue(env, "stray comma outside of backtick expression")

	case lisptype.Symbol:
		if val, ok := env.Lookup(h.Text(v)); ok {
			return val
		}
		return errorf(env, "undeclared identifier `%s'", h.Text(v))

	case lisptype.Cell:
		// a macro may expand into another macro call, so keep going until
		// the head is no longer a macro
		for expansions := 0; ; expansions++ {
			if g.RecursionLimit > 0 && expansions > g.RecursionLimit {
				return errorValue(env, "maximum recursion depth exceeded")
			}
			expanded, ok := expand(env, v)
			if !ok {
				break
			}
			if expanded.IsError() {
				return expanded
			}
			if expanded.Type != lisptype.Cell {
				return Eval(env, expanded)
			}
			v = expanded
		}

		fn := Eval(env, h.Car(v))
		if fn.IsError() {
			return fn
		}
		return apply(env, fn, h.Cdr(v))
	}

	return errorf(env, "cannot evaluate %s %s", v.Type.Article(), v.Type)
}

// macroFor returns the macro named by the head of form, if there is one.
func macroFor(env *lisptype.Env, form lisptype.Value) (*lisptype.Closure, bool) {
	h := env.Heap()
	if form.Type != lisptype.Cell || h.Car(form).Type != lisptype.Symbol {
		return nil, false
	}
	val, ok := env.Lookup(h.Text(h.Car(form)))
	if !ok || val.Type != lisptype.Macro {
		return nil, false
	}
	return h.Closure(val), true
}

// expand performs one macro expansion step on form. ok is false when the
// head of form does not name a macro.
func expand(env *lisptype.Env, form lisptype.Value) (lisptype.Value, bool) {
	c, ok := macroFor(env, form)
	if !ok {
		return form, false
	}
	return expandWith(env, c, env.Heap().Cdr(form)), true
}

// macros receive their arguments unevaluated
func expandWith(env *lisptype.Env, c *lisptype.Closure, args lisptype.Value) lisptype.Value {
	frame, errv := bindArguments(env, c, args, false)
	if errv.IsError() {
		return errv
	}
	return progn(frame, c.Body)
}

// applies a builtin, function or macro to an unevaluated argument list
func apply(env *lisptype.Env, fn, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	switch fn.Type {
	case lisptype.Builtin:
		return h.Primitive(fn).Fn(env, args)
	case lisptype.Function:
		c := h.Closure(fn)
		frame, errv := bindArguments(env, c, args, true)
		if errv.IsError() {
			return errv
		}
		return progn(frame, c.Body)
	case lisptype.Macro:
		// a macro reached through something other than its name
		expanded := expandWith(env, h.Closure(fn), args)
		if expanded.IsError() {
			return expanded
		}
		return Eval(env, expanded)
	}
	return errorf(env, "function application requires a function value (this is %s %s)",
		fn.Type.Article(), fn.Type)
}

type keywordArg struct {
	name string
	expr lisptype.Value
}

// bindArguments builds the frame a closure body runs in. The frame hangs
// off the closure's environment, not the caller's. Positional arguments
// and keyword arguments are evaluated in the caller's environment when
// evaluate is set; default expressions are evaluated in the new frame.
func bindArguments(caller *lisptype.Env, c *lisptype.Closure, args lisptype.Value, evaluate bool) (*lisptype.Env, lisptype.Value) {
	h := caller.Heap()

	// split off :name value pairs
	var positional []lisptype.Value
	var keys []keywordArg
	for a := args; a.Type != lisptype.Nil; a = h.Cdr(a) {
		if a.Type != lisptype.Cell {
			return nil, errorValue(caller, "malformed argument list")
		}
		arg := h.Car(a)
		if arg.Type != lisptype.KeywordParam {
			positional = append(positional, arg)
			continue
		}
		name := h.Text(h.Inner(arg))
		a = h.Cdr(a)
		if a.Type != lisptype.Cell {
			return nil, errorf(caller, "keyword argument `:%s' is missing a value", name)
		}
		keys = append(keys, keywordArg{name: name, expr: h.Car(a)})
	}

	params, _ := h.ToSlice(c.Params)
	nopt, _ := h.ListLength(c.Optional)
	nkey, _ := h.ListLength(c.Key)
	if len(positional) < len(params)-nopt-nkey {
		return nil, errorValue(caller, "invalid number of arguments")
	}
	if len(positional) > len(params) && c.Rest.IsNil() {
		return nil, errorValue(caller, "too many arguments")
	}

	if evaluate {
		for i, arg := range positional {
			val := Eval(caller, arg)
			if val.IsError() {
				return nil, val
			}
			positional[i] = val
		}
	}

	frame := c.Env.Child()
	for i := 0; i < len(params) && i < len(positional); i++ {
		if err := frame.AddVariable(params[i], positional[i]); err != nil {
			return nil, fromGo(caller, err)
		}
	}

	// keyword arguments win over both positional bindings and defaults
	for _, k := range keys {
		sym, ok := findParam(h, c.Key, k.name)
		if !ok {
			return nil, errorf(caller, "unknown keyword argument `:%s'", k.name)
		}
		val := k.expr
		if evaluate {
			val = Eval(caller, k.expr)
			if val.IsError() {
				return nil, val
			}
		}
		if err := frame.Define(sym, val); err != nil {
			return nil, fromGo(caller, err)
		}
	}

	for _, defaults := range []lisptype.Value{c.Optional, c.Key} {
		for d := defaults; d.Type == lisptype.Cell; d = h.Cdr(d) {
			pair := h.Car(d)
			sym := h.Car(pair)
			if _, bound := frame.FindLocal(h.Text(sym)); bound {
				continue
			}
			val := Eval(frame, h.Cdr(pair))
			if val.IsError() {
				return nil, val
			}
			if err := frame.AddVariable(sym, val); err != nil {
				return nil, fromGo(caller, err)
			}
		}
	}

	if !c.Rest.IsNil() {
		rest := lisptype.NilValue
		if len(positional) > len(params) {
			var err error
			rest, err = h.FromSlice(positional[len(params):])
			if err != nil {
				return nil, fromGo(caller, err)
			}
		}
		if err := frame.AddVariable(c.Rest, rest); err != nil {
			return nil, fromGo(caller, err)
		}
	}

	return frame, lisptype.NilValue
}

// findParam looks a name up in an assoc list of parameters and defaults
func findParam(h *lisptype.Heap, alist lisptype.Value, name string) (lisptype.Value, bool) {
	for p := alist; p.Type == lisptype.Cell; p = h.Cdr(p) {
		sym := h.Car(h.Car(p))
		if h.Text(sym) == name {
			return sym, true
		}
	}
	return lisptype.NilValue, false
}

// progn evaluates each form of body in order and returns the last result.
// The empty body evaluates to nil.
func progn(env *lisptype.Env, body lisptype.Value) lisptype.Value {
	h := env.Heap()
	result := lisptype.NilValue
	for b := body; b.Type == lisptype.Cell; b = h.Cdr(b) {
		result = Eval(env, h.Car(b))
		if result.IsError() {
			return result
		}
	}
	return result
}

// evalArgs evaluates every element of a proper list left to right. The
// second result is an Error value when something failed, nil otherwise.
func evalArgs(env *lisptype.Env, args lisptype.Value) ([]lisptype.Value, lisptype.Value) {
	h := env.Heap()
	vals := make([]lisptype.Value, 0)
	for a := args; a.Type != lisptype.Nil; a = h.Cdr(a) {
		if a.Type != lisptype.Cell {
			return nil, errorValue(env, "malformed argument list")
		}
		val := Eval(env, h.Car(a))
		if val.IsError() {
			return nil, val
		}
		vals = append(vals, val)
	}
	return vals, lisptype.NilValue
}

// evalList is evalArgs returning a heap list
func evalList(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalArgs(env, args)
	if errv.IsError() {
		return errv
	}
	l, err := env.Heap().FromSlice(vals)
	if err != nil {
		return fromGo(env, err)
	}
	return l
}

// parameter list sections
const (
	paramRequired = iota
	paramOptional
	paramKey
	paramRest
)

// makeFunction builds a Function or Macro out of (params body...). A
// leading string in the body is the docstring when more forms follow it.
func makeFunction(env *lisptype.Env, name string, spec lisptype.Value, t lisptype.ValueType) lisptype.Value {
	h := env.Heap()
	if spec.Type != lisptype.Cell {
		return errorValue(env, "missing list of parameters")
	}
	if !h.Car(spec).IsList() || !h.Cdr(spec).IsList() {
		return errorValue(env, "malformed function definition")
	}

	c := &lisptype.Closure{
		Name:      name,
		Optional:  lisptype.NilValue,
		Key:       lisptype.NilValue,
		Rest:      lisptype.NilValue,
		Docstring: lisptype.NilValue,
		Env:       env,
	}
	var params, optional, key []lisptype.Value
	section := paramRequired

	p := h.Car(spec)
	for ; p.Type == lisptype.Cell; p = h.Cdr(p) {
		item := h.Car(p)
		switch item.Type {
		case lisptype.Keyword:
			if section == paramRest {
				return errorValue(env, "expected end of parameter list to follow rest parameter")
			}
			kw := h.Text(h.Inner(item))
			var next int
			switch kw {
			case "optional":
				next = paramOptional
			case "key":
				next = paramKey
			case "rest":
				next = paramRest
			default:
				return errorf(env, "unknown parameter keyword `&%s'", kw)
			}
			// sections come at most once and in the order &optional &key &rest
			if next <= section {
				return errorf(env, "parameter keyword `&%s' is out of order", kw)
			}
			section = next
			continue

		case lisptype.Symbol:
			if section == paramRest {
				if !c.Rest.IsNil() {
					return errorValue(env, "expected end of parameter list to follow rest parameter")
				}
				c.Rest = item
				continue
			}
			params = append(params, item)
			def, err := h.Cons(item, lisptype.NilValue)
			if err != nil {
				return fromGo(env, err)
			}
			switch section {
			case paramOptional:
				optional = append(optional, def)
			case paramKey:
				key = append(key, def)
			}
			continue

		case lisptype.Cell:
			// (name default) after &optional or &key
			sym := h.Car(item)
			if (section == paramOptional || section == paramKey) && sym.Type == lisptype.Symbol {
				params = append(params, sym)
				def, err := h.Cons(sym, h.Car(h.Cdr(item)))
				if err != nil {
					return fromGo(env, err)
				}
				if section == paramOptional {
					optional = append(optional, def)
				} else {
					key = append(key, def)
				}
				continue
			}
		}
		return errorf(env, "parameter name must be a symbol (this is %s %s)",
			item.Type.Article(), item.Type)
	}
	if !p.IsNil() {
		return errorValue(env, "expected parameter list here")
	}
	if section == paramRest && c.Rest.IsNil() {
		return errorValue(env, "expected a symbol after `&rest'")
	}

	var err error
	if c.Params, err = h.FromSlice(params); err != nil {
		return fromGo(env, err)
	}
	if c.Optional, err = h.FromSlice(optional); err != nil {
		return fromGo(env, err)
	}
	if c.Key, err = h.FromSlice(key); err != nil {
		return fromGo(env, err)
	}

	c.Body = h.Cdr(spec)
	if first := h.Car(c.Body); first.Type == lisptype.String && h.Cdr(c.Body).Type == lisptype.Cell {
		c.Docstring = first
		c.Body = h.Cdr(c.Body)
	}

	fn, err := h.NewClosure(t, c)
	if err != nil {
		return fromGo(env, err)
	}
	return fn
}

// quasi expands a backtick template. Every cell of the template is
// rebuilt, so two expansions of the same template never share structure.
type quasi struct {
	env *lisptype.Env
	h   *lisptype.Heap
}

func (q quasi) expand(v lisptype.Value, depth int) lisptype.Value {
	switch v.Type {
	case lisptype.Comma:
		if depth == 1 {
			return Eval(q.env, q.h.Inner(v))
		}
		return q.rewrap(v, depth-1)
	case lisptype.CommaSplice:
		if depth == 1 {
			return errorValue(q.env, "`,@' is only allowed inside a list")
		}
		return q.rewrap(v, depth-1)
	case lisptype.Cell:
		return q.expandList(v, depth)
	}
	// atoms of the template are copied by content too
	c, err := q.h.Copy(v)
	if err != nil {
		return fromGo(q.env, err)
	}
	return c
}

// wrappers inside a nested backtick keep their shape
func (q quasi) rewrap(v lisptype.Value, depth int) lisptype.Value {
	inner := q.expand(q.h.Inner(v), depth)
	if inner.IsError() {
		return inner
	}
	w, err := q.h.NewWrapper(v.Type, inner)
	if err != nil {
		return fromGo(q.env, err)
	}
	return w
}

func (q quasi) expandList(v lisptype.Value, depth int) lisptype.Value {
	h := q.h
	if head := h.Car(v); head.Type == lisptype.Symbol && h.Text(head) == "backtick" {
		depth++
	}

	items := make([]lisptype.Value, 0)
	for ; v.Type == lisptype.Cell; v = h.Cdr(v) {
		item := h.Car(v)
		if item.Type != lisptype.CommaSplice || depth != 1 {
			x := q.expand(item, depth)
			if x.IsError() {
				return x
			}
			items = append(items, x)
			continue
		}

		spliced := Eval(q.env, h.Inner(item))
		if spliced.IsError() {
			return spliced
		}
		elems, ok := h.ToSlice(spliced)
		if !ok {
			return errorf(q.env, "expected a list after `,@' (this is %s %s)",
				spliced.Type.Article(), spliced.Type)
		}
		items = append(items, elems...)
	}

	// the tail of a dotted template
	tail := q.expand(v, depth)
	if tail.IsError() {
		return tail
	}
	l, err := h.FromSliceTail(items, tail)
	if err != nil {
		return fromGo(q.env, err)
	}
	return l
}

// Backtick expands a quasiquoted template in env.
func Backtick(env *lisptype.Env, template lisptype.Value) lisptype.Value {
	return quasi{env: env, h: env.Heap()}.expand(template, 1)
}

// EvaluateSource reads one expression out of text and evaluates it in
// env.
func EvaluateSource(env *lisptype.Env, text string) lisptype.Value {
	v := Read(env, text)
	if v.IsError() {
		return v
	}
	return Eval(env, v)
}

// AddBuiltin installs a primitive under name in the global frame of env.
func AddBuiltin(env *lisptype.Env, name string, fn lisptype.BuiltinFunc) error {
	h := env.Heap()
	b, err := h.NewBuiltin(name, fn)
	if err != nil {
		return err
	}
	sym, err := h.NewSymbol(name)
	if err != nil {
		return err
	}
	if sym.Type != lisptype.Symbol {
		return &Error{Kind: lisptype.EvalError, Msg: "cannot rebind `" + name + "'"}
	}
	env.G.Primitives[name] = h.Primitive(b)
	return env.Root().Define(sym, b)
}
