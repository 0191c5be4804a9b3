package events

import "sync"

// Handler receives one Event at a time. Handlers run synchronously on the
// publishing goroutine's call to Publish; a Handler that needs to do slow
// work should hand off to its own goroutine.
type Handler func(Event)

// Bus is a mutex-protected listener registry: the redesign called for in
// place of a generic string-keyed pub/sub bus. There is no global instance;
// callers construct and pass one explicitly.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a Handler and returns a function that unsubscribes
// it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := len(b.handlers)
	b.handlers = append(b.handlers, h)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.handlers) {
			b.handlers[idx] = nil
		}
	}
}

// Publish delivers evt to every currently subscribed handler.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(evt)
		}
	}
}
