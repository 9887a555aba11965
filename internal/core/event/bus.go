package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted in tick N are readable
// in tick N+1. SwapBuffers is called at tick start by EventDispatchSystem.
//
// Each event type gets a typed queue, so dispatch needs no reflection. Queues
// are dispatched in the order they were created by the first Subscribe or Emit.
type Bus struct {
	mu     sync.Mutex // only protects handler registration
	queues map[reflect.Type]queue
	order  []queue
}

type queue interface {
	swap()
	dispatch()
	pending() int
}

type typedQueue[T any] struct {
	front    []T
	back     []T
	handlers []func(T)
}

func (q *typedQueue[T]) swap() {
	q.front, q.back = q.back, q.front[:0]
}

func (q *typedQueue[T]) dispatch() {
	for _, ev := range q.front {
		for _, h := range q.handlers {
			h(ev)
		}
	}
}

func (q *typedQueue[T]) pending() int { return len(q.back) }

func NewBus() *Bus {
	return &Bus{
		queues: make(map[reflect.Type]queue),
	}
}

func queueFor[T any](b *Bus) *typedQueue[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if q, ok := b.queues[t]; ok {
		return q.(*typedQueue[T])
	}
	q := &typedQueue[T]{}
	b.queues[t] = q
	b.order = append(b.order, q)
	return q
}

// Emit queues an event into the back buffer (readable next tick).
func Emit[T any](b *Bus, event T) {
	q := queueFor[T](b)
	q.back = append(q.back, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := queueFor[T](b)
	q.handlers = append(q.handlers, fn)
}

// SwapBuffers rotates back to front and clears the new back buffer.
// Called once at tick start.
func (b *Bus) SwapBuffers() {
	for _, q := range b.order {
		q.swap()
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for _, q := range b.order {
		q.dispatch()
	}
}

// Pending returns the number of events waiting for the next swap.
func (b *Bus) Pending() int {
	n := 0
	for _, q := range b.order {
		n += q.pending()
	}
	return n
}
