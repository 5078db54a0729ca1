// Package events provides the publish/subscribe surface the rest of the
// application consumes. Emission is synchronous: by the time Emit
// returns, every subscriber has run.
package events

import (
	"sync"

	"storefront-agent/internal/types"
)

// Event names published by the agent.
const (
	MessagesUpdated = "messages-updated"
	NewMessages     = "new-messages"
	OrdersUpdated   = "orders-updated"
	NewOrders       = "new-orders"
)

// Handler receives the event payload. Payload types per event:
// messages-updated → types.MessagesSummary, new-messages →
// []types.Conversation, orders-updated → types.OrdersSummary,
// new-orders → []types.Order.
type Handler func(payload interface{})

// Bus implements in-memory pub/sub over the four named events.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   types.Logger
}

// NewBus creates a new event bus
func NewBus(logger types.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event name. Handlers run in
// subscription order.
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
	b.logger.Debugf("Subscribed handler to %s", event)
}

// Emit delivers the payload to every subscriber of the event,
// synchronously and in order. A panicking handler is isolated so it
// cannot take down the poll loop that triggered it.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(event, handler, payload)
	}
}

func (b *Bus) dispatch(event string, handler Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Event handler for %s panicked: %v", event, r)
		}
	}()
	handler(payload)
}
