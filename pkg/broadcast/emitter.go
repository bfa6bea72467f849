package broadcast

import (
	"sync"
	"sync/atomic"
)

// ID identifies a subscription on an Emitter.
type ID uint64

var lastID atomic.Uint64

// Listener receives broadcast values.
type Listener[T any] func(T)

type subscription[T any] struct {
	id ID
	fn Listener[T]
}

// Emitter delivers values synchronously to its subscribers, in subscription order,
// on the caller's goroutine.
//
// The zero value is ready to use.
type Emitter[T any] struct {
	mu   sync.RWMutex
	subs []subscription[T]
}

// NewEmitter creates an empty Emitter.
func NewEmitter[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns an id for Unsubscribe.
// A nil fn is ignored and yields the zero ID.
func (e *Emitter[T]) Subscribe(fn Listener[T]) ID {
	if fn == nil {
		return 0
	}

	id := ID(lastID.Add(1))

	e.mu.Lock()
	e.subs = append(e.subs, subscription[T]{id: id, fn: fn})
	e.mu.Unlock()

	return id
}

// Unsubscribe removes the listener registered under id.
// Reports whether a listener was removed.
func (e *Emitter[T]) Unsubscribe(id ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subs {
		if s.id == id {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Broadcast calls every listener with v.
// Listeners added or removed during a broadcast take effect on the next one.
// Returns the number of listeners called.
func (e *Emitter[T]) Broadcast(v T) int {
	e.mu.RLock()
	subs := make([]subscription[T], len(e.subs))
	copy(subs, e.subs)
	e.mu.RUnlock()

	for _, s := range subs {
		s.fn(v)
	}
	return len(subs)
}

// Len returns the number of listeners.
func (e *Emitter[T]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Clear removes every listener.
func (e *Emitter[T]) Clear() {
	e.mu.Lock()
	e.subs = nil
	e.mu.Unlock()
}
