package lisptype

import (
	"errors"
	"testing"
)

func TestAllocGrowsInChunks(t *testing.T) {
	h := NewHeap(0)
	for i := 0; i < chunk+1; i++ {
		if _, err := h.Alloc(Cell); err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
	}
	stats := h.Stats()
	if stats.Live != chunk+1 {
		t.Errorf("Expected %d live slots, got %d", chunk+1, stats.Live)
	}
	if stats.Capacity != 2*chunk {
		t.Errorf("Expected capacity %d, got %d", 2*chunk, stats.Capacity)
	}
}

func TestAllocRespectsLimit(t *testing.T) {
	h := NewHeap(10)
	for i := 0; i < 10; i++ {
		if _, err := h.Alloc(String); err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
	}
	if _, err := h.Alloc(String); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("Expected ErrOutOfMemory, got %v", err)
	}
	if e := h.NewError("boom"); e != OutOfMemory {
		t.Errorf("Expected the preallocated out of memory error on a full heap")
	}
	if got := h.Text(OutOfMemory); got != "out of memory" {
		t.Errorf("Expected \"out of memory\", got %q", got)
	}
}

func TestSymbolSingletons(t *testing.T) {
	h := NewHeap(0)
	if v, _ := h.NewSymbol("nil"); v != NilValue {
		t.Errorf("Expected nil to read as the nil singleton, got %v", v)
	}
	if v, _ := h.NewSymbol("t"); v != TrueValue {
		t.Errorf("Expected t to read as the true singleton, got %v", v)
	}
	v, _ := h.NewSymbol("foo")
	if v.Type != Symbol || h.Text(v) != "foo" {
		t.Errorf("Expected symbol foo, got %v %q", v.Type, h.Text(v))
	}
}

func TestCarCdrOfNil(t *testing.T) {
	h := NewHeap(0)
	if !h.Car(NilValue).IsNil() || !h.Cdr(NilValue).IsNil() {
		t.Errorf("Expected car and cdr of nil to be nil")
	}
}

func TestCopyIsDeep(t *testing.T) {
	h := NewHeap(0)
	a, _ := h.NewSymbol("a")
	inner, _ := h.FromSlice([]Value{a, MakeInt(2)})
	orig, _ := h.FromSlice([]Value{inner, MakeInt(3)})

	cp, err := h.Copy(orig)
	if err != nil {
		t.Fatal(err)
	}
	if cp.Same(orig) || h.Car(cp).Same(inner) {
		t.Fatalf("Expected copy to have fresh cells")
	}

	h.SetCar(h.Car(cp), MakeInt(99))
	if h.Car(inner).Type != Symbol {
		t.Errorf("Expected the original to be untouched by a change to the copy")
	}
	if c, _ := h.Copy(MakeInt(7)); c != MakeInt(7) {
		t.Errorf("Expected Copy of an int to return it unchanged")
	}
}

func TestListHelpers(t *testing.T) {
	h := NewHeap(0)
	l, _ := h.FromSlice([]Value{MakeInt(1), MakeInt(2), MakeInt(3)})
	if n, ok := h.ListLength(l); n != 3 || !ok {
		t.Errorf("Expected length 3 proper, got %d %v", n, ok)
	}
	dotted, _ := h.FromSliceTail([]Value{MakeInt(1)}, MakeInt(2))
	if _, ok := h.ListLength(dotted); ok {
		t.Errorf("Expected a dotted list to be reported as improper")
	}
	vals, ok := h.ToSlice(l)
	if !ok || len(vals) != 3 || vals[2].Integer != 3 {
		t.Errorf("Expected [1 2 3], got %v %v", vals, ok)
	}
}

func TestErrorKind(t *testing.T) {
	h := NewHeap(0)
	e := h.NewErrorKind(UserError, "nope")
	if h.Kind(e) != UserError || h.Text(e) != "nope" {
		t.Errorf("Expected a user error \"nope\", got %v %q", h.Kind(e), h.Text(e))
	}
	if h.Kind(OutOfMemory) != EvalError {
		t.Errorf("Expected out of memory to be an eval error")
	}
}
