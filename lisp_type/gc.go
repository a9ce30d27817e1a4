package lisptype

import "math/bits"

func (h *Heap) isMarked(idx int) bool {
	return h.marked[idx/chunk]&(1<<uint(idx%chunk)) != 0
}

func (h *Heap) setMark(idx int) {
	h.marked[idx/chunk] |= 1 << uint(idx%chunk)
}

// Mark marks v and everything reachable from it. Cells are walked along
// the cdr iteratively so long lists don't recurse.
func (h *Heap) Mark(v Value) {
	for v.onHeap() {
		if !h.occupied(v.Obj) || h.isMarked(v.Obj) {
			return
		}
		h.setMark(v.Obj)

		s := &h.slots[v.Obj]
		switch v.Type {
		case Cell:
			h.Mark(s.car)
			v = s.cdr
			continue
		case Keyword, KeywordParam, Comma, CommaSplice:
			v = s.inner
			continue
		case Function, Macro:
			c := s.fn
			h.Mark(c.Params)
			h.Mark(c.Optional)
			h.Mark(c.Key)
			h.Mark(c.Rest)
			h.Mark(c.Body)
			h.Mark(c.Docstring)
			h.MarkEnv(c.Env)
		}
		return
	}
}

// MarkEnv marks the binding lists of env and every frame above it. A frame
// is visited at most once per collection.
func (h *Heap) MarkEnv(env *Env) {
	for ; env != nil; env = env.Up {
		if env.epoch == h.epoch {
			return
		}
		env.epoch = h.epoch
		h.Mark(env.Vars)
	}
}

// Pin keeps v alive across collections until a matching Unpin.
func (h *Heap) Pin(v Value) {
	if v.onHeap() {
		h.pinned[v.Obj]++
	}
}

func (h *Heap) Unpin(v Value) {
	if !v.onHeap() {
		return
	}
	if h.pinned[v.Obj] <= 1 {
		delete(h.pinned, v.Obj)
		return
	}
	h.pinned[v.Obj]--
}

// Sweep frees every occupied slot that is neither marked nor pinned, then
// clears the marks for the next cycle. It returns the number of freed slots.
func (h *Heap) Sweep() int {
	for idx := range h.pinned {
		if h.occupied(idx) {
			h.Mark(Value{Type: h.slots[idx].typ, Obj: idx})
		}
	}

	freed := 0
	for w := range h.used {
		garbage := h.used[w] &^ h.marked[w]
		for garbage != 0 {
			bit := bits.TrailingZeros64(garbage)
			garbage &^= 1 << uint(bit)
			h.release(w*chunk + bit)
			freed++
		}
		h.marked[w] = 0
	}
	h.epoch++
	return freed
}

// Collect runs a full mark and sweep with the given environments as roots.
func (h *Heap) Collect(roots ...*Env) int {
	for _, env := range roots {
		h.MarkEnv(env)
	}
	return h.Sweep()
}
