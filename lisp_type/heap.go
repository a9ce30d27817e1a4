package lisptype

import (
	"errors"
	"math/bits"
)

// ErrOutOfMemory is returned by Alloc when the heap is at its slot limit.
var ErrOutOfMemory = errors.New("out of memory")

// slots are added one bitmap word at a time
const chunk = 64

// BuiltinFunc is a primitive implemented in Go. It receives its
// argument list unevaluated.
type BuiltinFunc func(env *Env, args Value) Value

// Primitive is what a Builtin slot holds.
type Primitive struct {
	Name string
	Fn   BuiltinFunc
}

// Closure is what a Function or Macro slot holds.
type Closure struct {
	Name      string // empty for anonymous functions
	Params    Value  // list of symbols, including optional and key names
	Optional  Value  // assoc list of (symbol . default expression)
	Key       Value  // assoc list of (symbol . default expression)
	Rest      Value  // symbol or nil
	Body      Value  // list of expressions
	Docstring Value  // string or nil
	Env       *Env   // the defining environment
}

// one object on the arena, shaped by the type of the handle
// pointing at it
type slot struct {
	typ      ValueType
	car, cdr Value      // Cell
	str      string     // String, Symbol, Error
	kind     ErrorKind  // Error
	inner    Value      // Keyword, KeywordParam, Comma, CommaSplice
	fn       *Closure   // Function, Macro
	prim     *Primitive // Builtin
}

// Heap is an arena of object slots addressed by index. One bit per slot
// in used records occupancy, a second bitmap records reachability during
// a collection.
type Heap struct {
	slots  []slot
	used   []uint64
	marked []uint64
	limit  int // 0 means unbounded
	live   int
	next   int // first bitmap word worth scanning

	epoch  uint64      // bumped by every sweep, see MarkEnv
	pinned map[int]int // slot -> pin count
}

// NewHeap creates an empty heap. A limit of zero lets it grow without
// bound.
func NewHeap(limit int) *Heap {
	return &Heap{
		limit:  limit,
		epoch:  1,
		pinned: make(map[int]int),
	}
}

// HeapStats is a snapshot of heap occupancy.
type HeapStats struct {
	Live     int // occupied slots
	Capacity int // allocated slots
	Limit    int // 0 means unbounded
}

func (h *Heap) Stats() HeapStats {
	return HeapStats{Live: h.live, Capacity: len(h.slots), Limit: h.limit}
}

func (h *Heap) grow() bool {
	if h.limit > 0 && len(h.slots) >= h.limit {
		return false
	}
	h.slots = append(h.slots, make([]slot, chunk)...)
	h.used = append(h.used, 0)
	h.marked = append(h.marked, 0)
	return true
}

// Alloc returns a handle to a fresh zeroed slot of the given type.
func (h *Heap) Alloc(t ValueType) (Value, error) {
	for {
		for w := h.next; w < len(h.used); w++ {
			free := ^h.used[w]
			if free == 0 {
				continue
			}
			bit := bits.TrailingZeros64(free)
			idx := w*chunk + bit
			if h.limit > 0 && idx >= h.limit {
				break
			}
			h.used[w] |= 1 << uint(bit)
			h.slots[idx].typ = t
			h.live++
			h.next = w
			return Value{Type: t, Obj: idx}, nil
		}
		h.next = len(h.used)
		if !h.grow() {
			return NilValue, ErrOutOfMemory
		}
	}
}

func (h *Heap) occupied(idx int) bool {
	return h.used[idx/chunk]&(1<<uint(idx%chunk)) != 0
}

func (h *Heap) release(idx int) {
	h.slots[idx] = slot{}
	h.used[idx/chunk] &^= 1 << uint(idx%chunk)
	h.live--
	if w := idx / chunk; w < h.next {
		h.next = w
	}
}

// Cons allocates a new cell.
func (h *Heap) Cons(car, cdr Value) (Value, error) {
	v, err := h.Alloc(Cell)
	if err != nil {
		return NilValue, err
	}
	h.slots[v.Obj].car = car
	h.slots[v.Obj].cdr = cdr
	return v, nil
}

// Acons prepends the pair (x . y) to the association list a.
func (h *Heap) Acons(x, y, a Value) (Value, error) {
	pair, err := h.Cons(x, y)
	if err != nil {
		return NilValue, err
	}
	return h.Cons(pair, a)
}

func (h *Heap) newText(t ValueType, s string) (Value, error) {
	v, err := h.Alloc(t)
	if err != nil {
		return NilValue, err
	}
	h.slots[v.Obj].str = s
	return v, nil
}

func (h *Heap) NewString(s string) (Value, error) {
	return h.newText(String, s)
}

// NewSymbol makes a symbol, except that nil and t read as the singletons.
func (h *Heap) NewSymbol(name string) (Value, error) {
	switch name {
	case "nil":
		return NilValue, nil
	case "t":
		return TrueValue, nil
	}
	return h.newText(Symbol, name)
}

// NewError makes an evaluation error value. When the heap is full it falls
// back to the preallocated out of memory error.
func (h *Heap) NewError(msg string) Value {
	return h.NewErrorKind(EvalError, msg)
}

func (h *Heap) NewErrorKind(kind ErrorKind, msg string) Value {
	v, err := h.newText(Error, msg)
	if err != nil {
		return OutOfMemory
	}
	h.slots[v.Obj].kind = kind
	return v
}

// Kind returns the kind of an Error value.
func (h *Heap) Kind(v Value) ErrorKind {
	if v.Type != Error || v.Obj < 0 {
		return EvalError
	}
	return h.slots[v.Obj].kind
}

// NewWrapper makes a Keyword, KeywordParam, Comma or CommaSplice.
func (h *Heap) NewWrapper(t ValueType, inner Value) (Value, error) {
	v, err := h.Alloc(t)
	if err != nil {
		return NilValue, err
	}
	h.slots[v.Obj].inner = inner
	return v, nil
}

// NewClosure makes a Function or Macro.
func (h *Heap) NewClosure(t ValueType, c *Closure) (Value, error) {
	v, err := h.Alloc(t)
	if err != nil {
		return NilValue, err
	}
	h.slots[v.Obj].fn = c
	return v, nil
}

func (h *Heap) NewBuiltin(name string, fn BuiltinFunc) (Value, error) {
	v, err := h.Alloc(Builtin)
	if err != nil {
		return NilValue, err
	}
	h.slots[v.Obj].prim = &Primitive{Name: name, Fn: fn}
	return v, nil
}

// Car is permissive: the car of nil is nil.
func (h *Heap) Car(v Value) Value {
	if v.Type != Cell {
		return NilValue
	}
	return h.slots[v.Obj].car
}

// Cdr is permissive: the cdr of nil is nil.
func (h *Heap) Cdr(v Value) Value {
	if v.Type != Cell {
		return NilValue
	}
	return h.slots[v.Obj].cdr
}

func (h *Heap) SetCar(cell, v Value) { h.slots[cell.Obj].car = v }
func (h *Heap) SetCdr(cell, v Value) { h.slots[cell.Obj].cdr = v }

// Text returns the contents of a String or Symbol, or the message of an
// Error.
func (h *Heap) Text(v Value) string {
	if v == OutOfMemory {
		return ErrOutOfMemory.Error()
	}
	return h.slots[v.Obj].str
}

func (h *Heap) Inner(v Value) Value          { return h.slots[v.Obj].inner }
func (h *Heap) Closure(v Value) *Closure     { return h.slots[v.Obj].fn }
func (h *Heap) Primitive(v Value) *Primitive { return h.slots[v.Obj].prim }

// Copy makes a deep structural copy of cells, strings, symbols and the
// comma wrappers. Everything else is returned as is.
func (h *Heap) Copy(v Value) (Value, error) {
	switch v.Type {
	case Cell:
		car, err := h.Copy(h.Car(v))
		if err != nil {
			return NilValue, err
		}
		cdr, err := h.Copy(h.Cdr(v))
		if err != nil {
			return NilValue, err
		}
		return h.Cons(car, cdr)
	case String, Symbol:
		return h.newText(v.Type, h.Text(v))
	case Comma, CommaSplice, Keyword, KeywordParam:
		inner, err := h.Copy(h.Inner(v))
		if err != nil {
			return NilValue, err
		}
		return h.NewWrapper(v.Type, inner)
	}
	return v, nil
}

// ListLength counts the cells of a proper list. ok is false for a dotted
// list or a non-list.
func (h *Heap) ListLength(v Value) (n int, ok bool) {
	for v.Type == Cell {
		n++
		v = h.Cdr(v)
	}
	return n, v.Type == Nil
}

// ToSlice converts a proper list into a slice of its elements.
func (h *Heap) ToSlice(v Value) ([]Value, bool) {
	result := make([]Value, 0)
	for v.Type == Cell {
		result = append(result, h.Car(v))
		v = h.Cdr(v)
	}
	return result, v.Type == Nil
}

// FromSlice builds a proper list out of values.
func (h *Heap) FromSlice(values []Value) (Value, error) {
	return h.FromSliceTail(values, NilValue)
}

// FromSliceTail builds a list out of values ending in tail.
func (h *Heap) FromSliceTail(values []Value, tail Value) (Value, error) {
	result := tail
	for i := len(values) - 1; i >= 0; i-- {
		var err error
		result, err = h.Cons(values[i], result)
		if err != nil {
			return NilValue, err
		}
	}
	return result, nil
}
