package lisp

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	lisptype "birch/lisp_type"
)

type builtinEntry struct {
	name string
	fn   lisptype.BuiltinFunc
}

// the primitives every global environment starts with
var builtins = []builtinEntry{
	// special forms and binding
	{"quote", builtinQuote},
	{"backtick", builtinBacktick},
	{"lambda", builtinLambda},
	{"fn", builtinLambda},
	{"defun", builtinDefun},
	{"defmacro", builtinDefmacro},
	{"macro", builtinDefmacro},
	{"set", builtinSet},
	{"setq", builtinSetq},
	{"def", builtinDef},
	{"let", builtinLet},
	{"progn", builtinProgn},
	{"if", builtinIf},
	{"cond", builtinCond},
	{"while", builtinWhile},
	{"and", builtinAnd},
	{"or", builtinOr},

	// lists
	{"list", builtinList},
	{"cons", builtinCons},
	{"car", builtinCar},
	{"cdr", builtinCdr},
	{"nth", builtinNth},
	{"length", builtinLength},
	{"append", builtinAppend},

	// equality and predicates
	{"eq", builtinEq},
	{"equal", builtinEqual},
	{"not", builtinNot},
	{"type-of", builtinTypeOf},

	// arithmetic
	{"+", arithmetic("+", func(a, b int64) int64 { return a + b })},
	{"-", arithmetic("-", func(a, b int64) int64 { return a - b })},
	{"*", arithmetic("*", func(a, b int64) int64 { return a * b })},
	{"/", builtinDiv},
	{"mod", builtinMod},
	{"=", comparison("=", func(a, b int64) bool { return a == b })},
	{"<", comparison("<", func(a, b int64) bool { return a < b })},
	{">", comparison(">", func(a, b int64) bool { return a > b })},
	{"<=", comparison("<=", func(a, b int64) bool { return a <= b })},
	{">=", comparison(">=", func(a, b int64) bool { return a >= b })},

	// meta
	{"eval", builtinEval},
	{"expand", builtinExpand},
	{"read-string", builtinReadString},
	{"documentation", builtinDocumentation},
	{"gensym", builtinGensym},
	{"uuid", builtinUUID},
	{"print", builtinPrint},
	{"apply", builtinApply},

	// errors
	{"error", builtinError},
	{"with-demoted-errors", builtinWithDemotedErrors},

	// bot
	{"channel", builtinChannel},
	{"save", builtinSave},
}

// LoadBuiltins binds every primitive in the global frame of env.
func LoadBuiltins(env *lisptype.Env) error {
	for _, b := range builtins {
		if err := AddBuiltin(env, b.name, b.fn); err != nil {
			return fmt.Errorf("loading builtin %s: %w", b.name, err)
		}
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// checkArgs splits an unevaluated argument list and checks its length.
// A negative max means no upper bound.
func checkArgs(env *lisptype.Env, name string, args lisptype.Value, min, max int) ([]lisptype.Value, lisptype.Value) {
	exprs, ok := env.Heap().ToSlice(args)
	if !ok {
		return nil, errorf(env, "builtin `%s' requires a proper argument list", name)
	}
	n := len(exprs)
	if n >= min && (max < 0 || n <= max) {
		return exprs, lisptype.NilValue
	}
	switch {
	case min == max:
		return nil, errorf(env, "builtin `%s' takes %d %s", name, min, plural(min, "argument"))
	case max < 0:
		return nil, errorf(env, "builtin `%s' takes at least %d %s", name, min, plural(min, "argument"))
	}
	return nil, errorf(env, "builtin `%s' takes %d to %d arguments", name, min, max)
}

func builtinQuote(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "quote", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	return exprs[0]
}

func builtinBacktick(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "backtick", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	return Backtick(env, exprs[0])
}

// (lambda (params) body...) or (fn name (params) body...)
func builtinLambda(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	if name := h.Car(args); name.Type == lisptype.Symbol {
		return define(env, "fn", args, lisptype.Function)
	}
	return makeFunction(env, "", args, lisptype.Function)
}

func builtinDefun(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return define(env, "defun", args, lisptype.Function)
}

func builtinDefmacro(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return define(env, "defmacro", args, lisptype.Macro)
}

// define builds a named closure and binds it in the current frame,
// replacing an earlier definition there so that reloading saved state
// keeps the binding order.
func define(env *lisptype.Env, builtin string, args lisptype.Value, t lisptype.ValueType) lisptype.Value {
	h := env.Heap()
	name := h.Car(args)
	if name.Type != lisptype.Symbol {
		return typeError(env, builtin, "a symbol name", name)
	}
	fn := makeFunction(env, h.Text(name), h.Cdr(args), t)
	if fn.IsError() {
		return fn
	}
	if err := env.Define(name, fn); err != nil {
		return fromGo(env, err)
	}
	return fn
}

// (set sym value) updates an existing binding; sym is evaluated
func builtinSet(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "set", args, 2, 2)
	if errv.IsError() {
		return errv
	}
	sym := Eval(env, exprs[0])
	if sym.IsError() {
		return sym
	}
	if sym.Type != lisptype.Symbol {
		return typeError(env, "set", "a symbol", sym)
	}
	bind, ok := env.Find(env.Heap().Text(sym))
	if !ok {
		return errorf(env, "undeclared identifier `%s'", env.Heap().Text(sym))
	}
	val := Eval(env, exprs[1])
	if val.IsError() {
		return val
	}
	env.Set(bind, val)
	return val
}

// (setq name value...) declares or updates each name in the current
// frame
func builtinSetq(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return assign(env, "setq", args, env)
}

// (def name value...) declares or updates in the global frame
func builtinDef(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return assign(env, "def", args, env.Root())
}

func assign(env *lisptype.Env, name string, args lisptype.Value, frame *lisptype.Env) lisptype.Value {
	exprs, errv := checkArgs(env, name, args, 2, -1)
	if errv.IsError() {
		return errv
	}
	if len(exprs)%2 != 0 {
		return errorf(env, "builtin `%s' takes pairs of names and values", name)
	}
	result := lisptype.NilValue
	for i := 0; i < len(exprs); i += 2 {
		sym := exprs[i]
		if sym.Type != lisptype.Symbol {
			return typeError(env, name, "a symbol", sym)
		}
		result = Eval(env, exprs[i+1])
		if result.IsError() {
			return result
		}
		if err := frame.Define(sym, result); err != nil {
			return fromGo(env, err)
		}
	}
	return result
}

// (let ((name value) name...) body...)
// each value is evaluated in the new frame, so later bindings see
// earlier ones
func builtinLet(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	bindings := h.Car(args)
	if args.Type != lisptype.Cell || !bindings.IsList() {
		return errorValue(env, "builtin `let' requires a list of bindings")
	}
	frame := env.Child()
	for b := bindings; b.Type == lisptype.Cell; b = h.Cdr(b) {
		item := h.Car(b)
		sym, val := item, lisptype.NilValue
		if item.Type == lisptype.Cell {
			sym = h.Car(item)
			val = Eval(frame, h.Car(h.Cdr(item)))
			if val.IsError() {
				return val
			}
		}
		if sym.Type != lisptype.Symbol {
			return typeError(env, "let", "symbol names", sym)
		}
		if err := frame.AddVariable(sym, val); err != nil {
			return fromGo(env, err)
		}
	}
	return progn(frame, h.Cdr(args))
}

func builtinProgn(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return progn(env, args)
}

// (if test then else...)
func builtinIf(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	if args.Type != lisptype.Cell || h.Cdr(args).Type != lisptype.Cell {
		return errorValue(env, "builtin `if' takes a condition and a branch")
	}
	cond := Eval(env, h.Car(args))
	if cond.IsError() {
		return cond
	}
	if cond.Truthy() {
		return Eval(env, h.Car(h.Cdr(args)))
	}
	return progn(env, h.Cdr(h.Cdr(args)))
}

// (cond (test body...)...)
func builtinCond(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	for c := args; c.Type == lisptype.Cell; c = h.Cdr(c) {
		clause := h.Car(c)
		if clause.Type != lisptype.Cell {
			return typeError(env, "cond", "list clauses", clause)
		}
		test := Eval(env, h.Car(clause))
		if test.IsError() {
			return test
		}
		if !test.Truthy() {
			continue
		}
		if h.Cdr(clause).IsNil() {
			return test
		}
		return progn(env, h.Cdr(clause))
	}
	return lisptype.NilValue
}

// (while test body...) returns the value of the last body evaluation
func builtinWhile(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	if args.Type != lisptype.Cell {
		return errorValue(env, "builtin `while' requires a condition")
	}
	result := lisptype.NilValue
	for {
		cond := Eval(env, h.Car(args))
		if cond.IsError() {
			return cond
		}
		if !cond.Truthy() {
			return result
		}
		result = progn(env, h.Cdr(args))
		if result.IsError() {
			return result
		}
	}
}

func builtinAnd(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	result := lisptype.TrueValue
	for a := args; a.Type == lisptype.Cell; a = h.Cdr(a) {
		result = Eval(env, h.Car(a))
		if result.IsError() || !result.Truthy() {
			return result
		}
	}
	return result
}

func builtinOr(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	for a := args; a.Type == lisptype.Cell; a = h.Cdr(a) {
		result := Eval(env, h.Car(a))
		if result.IsError() || result.Truthy() {
			return result
		}
	}
	return lisptype.NilValue
}

// ints evaluates every argument and requires them all to be integers
func ints(env *lisptype.Env, name string, args lisptype.Value) ([]int64, lisptype.Value) {
	vals, errv := evalArgs(env, args)
	if errv.IsError() {
		return nil, errv
	}
	result := make([]int64, len(vals))
	for i, v := range vals {
		if v.Type != lisptype.Int {
			return nil, errorf(env, "builtin `%s' takes only numeric arguments (got `%s')", name, v.Type)
		}
		result[i] = v.Integer
	}
	return result, lisptype.NilValue
}

// arithmetic folds left to right, seeded with the first argument. No
// arguments at all gives 0.
func arithmetic(name string, op func(a, b int64) int64) lisptype.BuiltinFunc {
	return func(env *lisptype.Env, args lisptype.Value) lisptype.Value {
		nums, errv := ints(env, name, args)
		if errv.IsError() {
			return errv
		}
		if len(nums) == 0 {
			return lisptype.MakeInt(0)
		}
		sum := nums[0]
		for _, n := range nums[1:] {
			sum = op(sum, n)
		}
		return lisptype.MakeInt(sum)
	}
}

func builtinDiv(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return divide(env, "/", "division", args, func(a, b int64) int64 { return a / b })
}

func builtinMod(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	return divide(env, "mod", "modulo", args, func(a, b int64) int64 { return a % b })
}

func divide(env *lisptype.Env, name, what string, args lisptype.Value, op func(a, b int64) int64) lisptype.Value {
	nums, errv := ints(env, name, args)
	if errv.IsError() {
		return errv
	}
	if len(nums) == 0 {
		return lisptype.MakeInt(0)
	}
	result := nums[0]
	for _, n := range nums[1:] {
		if n == 0 {
			return errorf(env, "%s by zero is forbidden", what)
		}
		result = op(result, n)
	}
	return lisptype.MakeInt(result)
}

// comparisons hold between every adjacent pair of arguments
func comparison(name string, holds func(a, b int64) bool) lisptype.BuiltinFunc {
	return func(env *lisptype.Env, args lisptype.Value) lisptype.Value {
		nums, errv := ints(env, name, args)
		if errv.IsError() {
			return errv
		}
		for i := 1; i < len(nums); i++ {
			if !holds(nums[i-1], nums[i]) {
				return lisptype.NilValue
			}
		}
		return lisptype.TrueValue
	}
}

func builtinEval(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "eval", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	form := Eval(env, exprs[0])
	if form.IsError() {
		return form
	}
	return Eval(env, form)
}

// (expand form) performs one macro expansion step
func builtinExpand(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "expand", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	form := Eval(env, exprs[0])
	if form.IsError() {
		return form
	}
	expanded, _ := expand(env, form)
	return expanded
}

func builtinReadString(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "read-string", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	s := Eval(env, exprs[0])
	if s.IsError() {
		return s
	}
	if s.Type != lisptype.String {
		return typeError(env, "read-string", "a string argument", s)
	}
	return Read(env, env.Heap().Text(s))
}

func builtinDocumentation(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "documentation", args, 1, 1)
	if errv.IsError() {
		return errv
	}
	fn := Eval(env, exprs[0])
	if fn.IsError() {
		return fn
	}
	if fn.Type != lisptype.Function && fn.Type != lisptype.Macro {
		return typeError(env, "documentation", "a function argument", fn)
	}
	return env.Heap().Closure(fn).Docstring
}

func builtinGensym(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	if _, errv := checkArgs(env, "gensym", args, 0, 0); errv.IsError() {
		return errv
	}
	env.G.Gensym++
	sym, err := symbol(env, fmt.Sprintf("g__%d", env.G.Gensym))
	if err != nil {
		return fromGo(env, err)
	}
	return sym
}

func builtinUUID(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	if _, errv := checkArgs(env, "uuid", args, 0, 0); errv.IsError() {
		return errv
	}
	s, err := env.Heap().NewString(uuid.New().String())
	if err != nil {
		return fromGo(env, err)
	}
	return s
}

// display concatenates the printed form of every value, strings raw
func display(env *lisptype.Env, vals []lisptype.Value) string {
	var sb strings.Builder
	for _, v := range vals {
		sb.WriteString(Display(env, v))
	}
	return sb.String()
}

func builtinPrint(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalArgs(env, args)
	if errv.IsError() {
		return errv
	}
	s, err := env.Heap().NewString(display(env, vals))
	if err != nil {
		return fromGo(env, err)
	}
	return s
}

// (apply fn list) calls fn with the elements of list as its arguments
func builtinApply(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	exprs, errv := checkArgs(env, "apply", args, 2, 2)
	if errv.IsError() {
		return errv
	}
	fn := Eval(env, exprs[0])
	if fn.IsError() {
		return fn
	}
	l := Eval(env, exprs[1])
	if l.IsError() {
		return l
	}
	h := env.Heap()
	vals, ok := h.ToSlice(l)
	if !ok {
		return typeError(env, "apply", "a list argument", l)
	}

	// the callee evaluates its arguments again, so pass them quoted
	quote, err := symbol(env, "quote")
	if err != nil {
		return fromGo(env, err)
	}
	for i, v := range vals {
		if vals[i], err = list(env, quote, v); err != nil {
			return fromGo(env, err)
		}
	}
	quoted, err := h.FromSlice(vals)
	if err != nil {
		return fromGo(env, err)
	}
	return apply(env, fn, quoted)
}

// (error message...) raises a user error
func builtinError(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	vals, errv := evalArgs(env, args)
	if errv.IsError() {
		return errv
	}
	return env.Heap().NewErrorKind(lisptype.UserError, display(env, vals))
}

// (with-demoted-errors body...) turns an error into its printed form
func builtinWithDemotedErrors(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	result := progn(env, args)
	if !result.IsError() {
		return result
	}
	s, err := env.Heap().NewString(PrintValue(env, result))
	if err != nil {
		return fromGo(env, err)
	}
	return s
}

// ParseChannel splits a descriptor like "irc.example.net/#lisp" into its
// server and channel. "global" names the global frame.
func ParseChannel(desc string) (server, channel string, ok bool) {
	if desc == "global" {
		return "global", "global", true
	}
	server, channel, ok = strings.Cut(desc, "/")
	if !ok || server == "" || channel == "" {
		return "", "", false
	}
	return server, channel, true
}

// (channel "server/#chan" body...) evaluates body in another channel
func builtinChannel(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	h := env.Heap()
	if args.Type != lisptype.Cell {
		return errorValue(env, "builtin `channel' requires a channel descriptor")
	}
	desc := Eval(env, h.Car(args))
	if desc.IsError() {
		return desc
	}
	if desc.Type != lisptype.String {
		return typeError(env, "channel", "a string descriptor", desc)
	}
	server, channel, ok := ParseChannel(h.Text(desc))
	if !ok {
		return errorf(env, "malformed channel descriptor `%s'", h.Text(desc))
	}
	target := env.Root()
	if server != "global" {
		target = env.ChannelEnv(server, channel)
	}
	return progn(target, h.Cdr(args))
}

// (save) writes the persisted state to the configured state file
func builtinSave(env *lisptype.Env, args lisptype.Value) lisptype.Value {
	if _, errv := checkArgs(env, "save", args, 0, 0); errv.IsError() {
		return errv
	}
	if env.G.StatePath == "" {
		return errorValue(env, "no state file configured")
	}
	if err := saveFile(env.Root(), env.G.StatePath); err != nil {
		return errorf(env, "could not save state: %v", err)
	}
	env.G.Logger.Info("state saved",
		"path", env.G.StatePath, "server", env.Server, "channel", env.Channel)
	return lisptype.TrueValue
}
