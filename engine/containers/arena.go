package containers

// Handle is a generational reference into an Arena. The zero Handle is never
// valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.Generation == 0
}

type slot[T any] struct {
	value      T
	occupied   bool
	generation uint32
}

// Arena stores values in stable slots addressed by generational handles.
// Freed slots are reused last-in first-out and their generation is bumped so
// that handles to the previous occupant stop resolving.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

func nextGeneration(g uint32) uint32 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}

func (a *Arena[T]) Insert(value T) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = value
		s.occupied = true
		return Handle{Index: idx, Generation: s.generation}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[T]{value: value, occupied: true, generation: 1})
	return Handle{Index: idx, Generation: 1}
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	if int(h.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if !s.occupied || s.generation != h.Generation {
		return nil
	}
	return s
}

func (a *Arena[T]) Get(h Handle) (T, bool) {
	if s := a.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// GetPtr returns a pointer into the slot. It is invalidated by the next Insert.
func (a *Arena[T]) GetPtr(h Handle) (*T, bool) {
	if s := a.lookup(h); s != nil {
		return &s.value, true
	}
	return nil, false
}

func (a *Arena[T]) Contains(h Handle) bool {
	return a.lookup(h) != nil
}

func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	s := a.lookup(h)
	if s == nil {
		return zero, false
	}
	value := s.value
	s.value = zero
	s.occupied = false
	s.generation = nextGeneration(s.generation)
	a.free = append(a.free, h.Index)
	a.live--
	return value, true
}

// Len is the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// Capacity is the number of slots ever allocated, live or free.
func (a *Arena[T]) Capacity() int {
	return len(a.slots)
}

// Each visits live values in index order.
func (a *Arena[T]) Each(fn func(h Handle, value *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.occupied {
			fn(Handle{Index: uint32(i), Generation: s.generation}, &s.value)
		}
	}
}
