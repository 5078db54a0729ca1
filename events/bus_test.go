package events

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"storefront-agent/internal/types"
)

func TestBus_EmitSynchronousOrder(t *testing.T) {
	bus := NewBus(logrus.New())

	var order []string
	bus.Subscribe(MessagesUpdated, func(payload interface{}) {
		order = append(order, "first")
	})
	bus.Subscribe(MessagesUpdated, func(payload interface{}) {
		order = append(order, "second")
	})

	bus.Emit(MessagesUpdated, types.MessagesSummary{Total: 3})

	// Both handlers ran before Emit returned, in subscription order.
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_EmitDeliversPayload(t *testing.T) {
	bus := NewBus(logrus.New())

	var got types.OrdersSummary
	bus.Subscribe(OrdersUpdated, func(payload interface{}) {
		got = payload.(types.OrdersSummary)
	})

	bus.Emit(OrdersUpdated, types.OrdersSummary{Total: 5, New: 2, PrintOrders: 1})

	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 2, got.New)
	assert.Equal(t, 1, got.PrintOrders)
}

func TestBus_EmitNoSubscribers(t *testing.T) {
	bus := NewBus(logrus.New())

	// Should not panic with nobody listening.
	bus.Emit(NewOrders, []types.Order{})
}

func TestBus_HandlerPanicIsolated(t *testing.T) {
	bus := NewBus(logrus.New())

	called := false
	bus.Subscribe(NewMessages, func(payload interface{}) {
		panic("bad handler")
	})
	bus.Subscribe(NewMessages, func(payload interface{}) {
		called = true
	})

	assert.NotPanics(t, func() {
		bus.Emit(NewMessages, []types.Conversation{{ID: "1"}})
	})
	assert.True(t, called, "later handlers still run after an earlier panic")
}

func TestBus_EventsAreIndependent(t *testing.T) {
	bus := NewBus(logrus.New())

	count := 0
	bus.Subscribe(NewMessages, func(payload interface{}) { count++ })

	bus.Emit(MessagesUpdated, types.MessagesSummary{})
	assert.Equal(t, 0, count)

	bus.Emit(NewMessages, []types.Conversation{})
	assert.Equal(t, 1, count)
}
