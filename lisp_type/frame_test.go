package lisptype

import "testing"

func symbols(t *testing.T, h *Heap, names ...string) Value {
	t.Helper()
	vals := make([]Value, len(names))
	for i, name := range names {
		vals[i], _ = h.NewSymbol(name)
	}
	l, err := h.FromSlice(vals)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestPushStopsAtShorterList(t *testing.T) {
	h := NewHeap(0)
	global := NewGlobalEnv(h)
	params := symbols(t, h, "a", "b", "c")
	args, _ := h.FromSlice([]Value{MakeInt(1), MakeInt(2)})

	env, err := Push(global, params, args)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := env.Lookup("b"); !ok || v.Integer != 2 {
		t.Errorf("Expected b = 2, got %v %v", v, ok)
	}
	if _, ok := env.Lookup("c"); ok {
		t.Errorf("Expected c to be unbound")
	}
}

func TestFindReturnsInnermost(t *testing.T) {
	h := NewHeap(0)
	global := NewGlobalEnv(h)
	x, _ := h.NewSymbol("x")
	global.AddVariable(x, MakeInt(1))

	inner := global.Child()
	x2, _ := h.NewSymbol("x")
	inner.AddVariable(x2, MakeInt(2))

	if v, _ := inner.Lookup("x"); v.Integer != 2 {
		t.Errorf("Expected the inner binding 2, got %d", v.Integer)
	}
	if v, _ := global.Lookup("x"); v.Integer != 1 {
		t.Errorf("Expected the outer binding untouched, got %d", v.Integer)
	}
}

func TestDefineUpdatesInPlace(t *testing.T) {
	h := NewHeap(0)
	env := NewGlobalEnv(h)
	x, _ := h.NewSymbol("x")
	env.Define(x, MakeInt(1))
	env.Define(x, MakeInt(2))

	n, _ := h.ListLength(env.Vars)
	if n != 1 {
		t.Errorf("Expected one binding, got %d", n)
	}
	if v, _ := env.Lookup("x"); v.Integer != 2 {
		t.Errorf("Expected x = 2, got %d", v.Integer)
	}
}

func TestChannelEnvIsReused(t *testing.T) {
	h := NewHeap(0)
	global := NewGlobalEnv(h)
	a := global.ChannelEnv("srv", "#a")
	if a.Up != global || a.Server != "srv" || a.Channel != "#a" {
		t.Errorf("Expected a channel frame under the global frame")
	}
	if b := a.ChannelEnv("srv", "#a"); b != a {
		t.Errorf("Expected the same frame for the same channel")
	}
	if len(global.G.Channels) != 1 {
		t.Errorf("Expected one channel, got %d", len(global.G.Channels))
	}
}
