package arena

// ID encodes a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on release to invalidate stale refs.
// Generations start at 1, so the zero ID never names a live slot.
type ID uint64

func NewID(index uint32, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

func (id ID) Index() uint32      { return uint32(id) }
func (id ID) Generation() uint32 { return uint32(id >> 32) }
func (id ID) IsZero() bool       { return id == 0 }

// Arena hands out pointers to T from generational slots backed by a free list.
// A released slot keeps its *T so the next Acquire reuses the same memory.
// Single-goroutine access only (tick loop).
type Arena[T any] struct {
	items       []*T
	generations []uint32
	live        []bool
	freeList    []uint32
}

func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		items:       make([]*T, 0, capacity),
		generations: make([]uint32, 0, capacity),
		live:        make([]bool, 0, capacity),
		freeList:    make([]uint32, 0, capacity/4),
	}
}

// Acquire pops a slot from the free list, or grows the arena with a value built
// by fresh. reused reports whether the returned pointer came from the free list.
func (a *Arena[T]) Acquire(fresh func() *T) (id ID, item *T, reused bool) {
	if n := len(a.freeList); n > 0 {
		idx := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.live[idx] = true
		return NewID(idx, a.generations[idx]), a.items[idx], true
	}
	idx := uint32(len(a.items))
	a.items = append(a.items, fresh())
	a.generations = append(a.generations, 1)
	a.live = append(a.live, true)
	return NewID(idx, 1), a.items[idx], false
}

// Get returns the item behind id if the slot is still on the same generation.
func (a *Arena[T]) Get(id ID) (*T, bool) {
	if !a.Alive(id) {
		return nil, false
	}
	return a.items[id.Index()], true
}

func (a *Arena[T]) Alive(id ID) bool {
	idx := id.Index()
	if int(idx) >= len(a.items) {
		return false
	}
	return a.live[idx] && a.generations[idx] == id.Generation()
}

// Release bumps the slot generation and pushes it on the free list.
// Releasing a stale id is a no-op and reports false.
func (a *Arena[T]) Release(id ID) bool {
	if !a.Alive(id) {
		return false // already released (stale reference)
	}
	idx := id.Index()
	a.generations[idx]++
	if a.generations[idx] == 0 {
		a.generations[idx] = 1
	}
	a.live[idx] = false
	a.freeList = append(a.freeList, idx)
	return true
}

// Cap returns the number of slots ever created.
func (a *Arena[T]) Cap() int { return len(a.items) }

// Free returns the number of slots waiting on the free list.
func (a *Arena[T]) Free() int { return len(a.freeList) }

// Len returns the number of live slots.
func (a *Arena[T]) Len() int { return len(a.items) - len(a.freeList) }

// Each calls fn for every live slot in index order.
func (a *Arena[T]) Each(fn func(ID, *T)) {
	for i, item := range a.items {
		if a.live[i] {
			fn(NewID(uint32(i), a.generations[i]), item)
		}
	}
}
