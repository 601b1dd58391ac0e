// Package arena provides a fixed-capacity pool of slots addressed by
// generation-checked handles.
//
// Composite behaviors keep their active instances in an Arena so that a slot
// is owned by exactly one instance for its lifetime and is handed back to the
// free-list on completion. A Handle held by a deadline callback becomes stale
// once its slot is freed, so late callbacks can detect that they no longer own
// the instance.
package arena

import "errors"

// ErrFull is returned by Alloc when every slot is in use.
var ErrFull = errors.New("arena: no free slot")

// Handle identifies one allocation. The zero Handle is never valid.
type Handle struct {
	idx uint32
	gen uint32
}

// Valid reports whether h was ever returned by Alloc.
func (h Handle) Valid() bool { return h.gen != 0 }

// Index returns the slot index, mostly for logging.
func (h Handle) Index() int { return int(h.idx) }

type slot[T any] struct {
	gen  uint32
	used bool
	val  T
}

// Arena is a fixed-capacity slot pool. It is not safe for concurrent use; the
// engine mutates it from a single goroutine.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	inUse int
}

// New creates an arena with room for capacity live values.
func New[T any](capacity int) *Arena[T] {
	if capacity < 1 {
		capacity = 1
	}
	a := &Arena[T]{
		slots: make([]slot[T], capacity),
		free:  make([]uint32, 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		a.free = append(a.free, uint32(i))
	}
	return a
}

// Alloc takes a free slot, resets it to the zero value and returns its handle
// and a pointer to the value. The pointer stays valid until Free.
func (a *Arena[T]) Alloc() (Handle, *T, error) {
	if len(a.free) == 0 {
		return Handle{}, nil, ErrFull
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	s := &a.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.used = true
	var zero T
	s.val = zero
	a.inUse++
	return Handle{idx: idx, gen: s.gen}, &s.val, nil
}

// Get returns the value for h, or nil when h is stale or was never allocated.
func (a *Arena[T]) Get(h Handle) *T {
	if !h.Valid() || int(h.idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.idx]
	if !s.used || s.gen != h.gen {
		return nil
	}
	return &s.val
}

// Free returns the slot of h to the free-list. Freeing a stale handle is a
// no-op and reports false.
func (a *Arena[T]) Free(h Handle) bool {
	if a.Get(h) == nil {
		return false
	}
	s := &a.slots[h.idx]
	s.used = false
	var zero T
	s.val = zero
	a.free = append(a.free, h.idx)
	a.inUse--
	return true
}

// Find returns the first live value accepted by match.
func (a *Arena[T]) Find(match func(*T) bool) (Handle, *T, bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used && match(&s.val) {
			return Handle{idx: uint32(i), gen: s.gen}, &s.val, true
		}
	}
	return Handle{}, nil, false
}

// Each calls fn for every live value in slot order. fn may Free the handle it
// is given.
func (a *Arena[T]) Each(fn func(Handle, *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.used {
			fn(Handle{idx: uint32(i), gen: s.gen}, &s.val)
		}
	}
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.inUse }

// Cap returns the arena capacity.
func (a *Arena[T]) Cap() int { return len(a.slots) }
