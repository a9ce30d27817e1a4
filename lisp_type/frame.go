package lisptype

import (
	"context"
	"log/slog"
)

// Global is the state shared by every frame of one environment tree:
// the heap, the primitive table, the per-channel frames and the limits
// the evaluator enforces.
type Global struct {
	Heap       *Heap
	Primitives map[string]*Primitive
	Channels   map[string]*Env // keyed by "server/channel"

	Context        context.Context // checked on every evaluation step
	RecursionLimit int             // 0 means unlimited
	Depth          int

	StatePath string // where save writes to
	Logger    *slog.Logger

	Gensym int
}

// a frame contains bindings, an association list from symbols to
// values, and a pointer to the frame above it
type Env struct {
	Vars Value // assoc list of (symbol . value)
	Up   *Env  // the frame above this one, nil for the global frame

	// identity of the channel this tree of frames belongs to
	Server, Channel string

	G     *Global
	epoch uint64
}

// NewGlobalEnv creates the root frame of a new environment tree.
func NewGlobalEnv(heap *Heap) *Env {
	g := &Global{
		Heap:       heap,
		Primitives: make(map[string]*Primitive),
		Channels:   make(map[string]*Env),
		Context:    context.Background(),
		Logger:     slog.Default(),
	}
	return &Env{Vars: NilValue, Server: "global", Channel: "global", G: g}
}

// Heap is shorthand for env.G.Heap.
func (e *Env) Heap() *Heap { return e.G.Heap }

// Root returns the global frame of the chain.
func (e *Env) Root() *Env {
	for e.Up != nil {
		e = e.Up
	}
	return e
}

// Child makes an empty frame below e that shares its channel identity.
func (e *Env) Child() *Env {
	return &Env{Vars: NilValue, Up: e, Server: e.Server, Channel: e.Channel, G: e.G}
}

// ChannelEnv returns the frame for a channel, creating it under the global
// frame on first use.
func (e *Env) ChannelEnv(server, channel string) *Env {
	key := server + "/" + channel
	if env, ok := e.G.Channels[key]; ok {
		return env
	}
	root := e.Root()
	env := &Env{Vars: NilValue, Up: root, Server: server, Channel: channel, G: e.G}
	e.G.Channels[key] = env
	return env
}

// Push builds a new frame below parent binding params to args pairwise,
// stopping at the shorter of the two lists.
func Push(parent *Env, params, args Value) (*Env, error) {
	h := parent.Heap()
	env := parent.Child()
	for p, a := params, args; p.Type == Cell && a.Type == Cell; p, a = h.Cdr(p), h.Cdr(a) {
		if err := env.AddVariable(h.Car(p), h.Car(a)); err != nil {
			return nil, err
		}
	}
	return env, nil
}

// AddVariable prepends a binding to this frame, shadowing any outer
// binding of the same name.
func (e *Env) AddVariable(sym, value Value) error {
	vars, err := e.Heap().Acons(sym, value, e.Vars)
	if err != nil {
		return err
	}
	e.Vars = vars
	return nil
}

// FindLocal looks for a binding of name in this frame only.
func (e *Env) FindLocal(name string) (Value, bool) {
	h := e.Heap()
	for c := e.Vars; c.Type == Cell; c = h.Cdr(c) {
		bind := h.Car(c)
		if h.Text(h.Car(bind)) == name {
			return bind, true
		}
	}
	return NilValue, false
}

// Find walks outward from e and returns the innermost binding cell of
// name. Symbols compare by name, not by handle.
func (e *Env) Find(name string) (Value, bool) {
	for env := e; env != nil; env = env.Up {
		if bind, ok := env.FindLocal(name); ok {
			return bind, true
		}
	}
	return NilValue, false
}

// Lookup returns the current value bound to name.
func (e *Env) Lookup(name string) (Value, bool) {
	bind, ok := e.Find(name)
	if !ok {
		return NilValue, false
	}
	return e.Heap().Cdr(bind), true
}

// Set mutates a binding cell in place.
func (e *Env) Set(bind, value Value) {
	e.Heap().SetCdr(bind, value)
}

// Define updates the binding of sym in this frame or adds one.
func (e *Env) Define(sym, value Value) error {
	if bind, ok := e.FindLocal(e.Heap().Text(sym)); ok {
		e.Set(bind, value)
		return nil
	}
	return e.AddVariable(sym, value)
}
