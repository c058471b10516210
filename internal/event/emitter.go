// Package event provides a generic synchronous event emitter.
package event

import "sync"

// Emitter fans events out to registered handlers. The zero value is ready to
// use and safe for concurrent use.
type Emitter[E any] struct {
	mu sync.RWMutex
	// +checklocks:mu
	handlers []subscription[E]
	// +checklocks:mu
	nextID uint64
}

type subscription[E any] struct {
	id uint64
	fn func(E)
}

// OnEvent registers a handler and returns a function that removes it.
// Handlers are called synchronously, in registration order, on the emitting
// goroutine.
func (e *Emitter[E]) OnEvent(handler func(E)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscription[E]{id: id, fn: handler})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[E]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.handlers {
		if s.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

// Emit sends an event to every handler registered when Emit starts.
// Handlers may register or unsubscribe during emission.
// Must not be called with lock held.
func (e *Emitter[E]) Emit(event E) {
	e.mu.RLock()
	handlers := make([]subscription[E], len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	for _, h := range handlers {
		h.fn(event)
	}
}

// Len returns the number of registered handlers.
func (e *Emitter[E]) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers)
}
