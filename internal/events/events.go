// Package events is an in-process publish/subscribe bus. Repositories emit
// "<table>.created", "<table>.updated" and "<table>.deleted" after writes.
package events

import (
	"context"
	"sync"
)

// Handler receives the payload passed to Emit.
type Handler func(ctx context.Context, payload interface{})

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// On registers h for event.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Emit calls every handler registered for event synchronously, in
// registration order.
func (b *Bus) Emit(ctx context.Context, event string, payload interface{}) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, payload)
	}
}
