package areaselect

import "sync"

// PointerHub is a window-scoped pointer-move listener registry. The front-end
// emits every pointer move into it; listeners receive moves only while
// subscribed.
type PointerHub struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(x, y float64)
}

func NewPointerHub() *PointerHub {
	return &PointerHub{subs: make(map[uint64]func(x, y float64))}
}

// Subscribe registers fn and returns its detach func. Detach is idempotent.
func (h *PointerHub) Subscribe(fn func(x, y float64)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Emit delivers a move to the current listeners. Listeners run outside the
// hub lock so they may detach themselves.
func (h *PointerHub) Emit(x, y float64) {
	h.mu.Lock()
	fns := make([]func(x, y float64), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(x, y)
	}
}

func (h *PointerHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
