// Package poller schedules periodic extraction for messages and orders
// on independent timers and emits delta events for genuinely new items.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"storefront-agent/events"
	"storefront-agent/internal/types"
)

// Source is the extraction surface the poller ticks against.
type Source interface {
	Messages(ctx context.Context, onlyUnread bool) ([]types.Conversation, error)
	Orders(ctx context.Context, statusFilter string) ([]types.Order, error)
}

// Poller runs the two poll loops. Both navigate the one shared browser
// page, so ticks run synchronously inside their loop: a slow extraction
// delays the next tick instead of racing it.
type Poller struct {
	config *types.Config
	logger types.Logger
	source Source
	bus    *events.Bus

	mu        sync.Mutex
	msgStop   chan struct{}
	orderStop chan struct{}

	msgInFlight   atomic.Bool
	orderInFlight atomic.Bool

	lastMessageCheck time.Time
	lastOrderCheck   time.Time
}

// NewPoller creates a poller over the given extraction source.
func NewPoller(config *types.Config, logger types.Logger, source Source, bus *events.Bus) *Poller {
	return &Poller{
		config: config,
		logger: logger,
		source: source,
		bus:    bus,
	}
}

// StartMessagePolling begins the message loop. Restarting cancels the
// previous loop first, so exactly one timer is ever active. A zero
// interval uses the configured default.
func (p *Poller) StartMessagePolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = p.config.MessageInterval
	}

	p.mu.Lock()
	if p.msgStop != nil {
		close(p.msgStop)
	}
	stop := make(chan struct{})
	p.msgStop = stop
	p.mu.Unlock()

	p.logger.Infof("Message polling started (every %v)", interval)
	go p.loop(ctx, interval, stop, &p.msgInFlight, p.tickMessages)
}

// StartOrderPolling begins the order loop, same semantics as
// StartMessagePolling.
func (p *Poller) StartOrderPolling(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = p.config.OrderInterval
	}

	p.mu.Lock()
	if p.orderStop != nil {
		close(p.orderStop)
	}
	stop := make(chan struct{})
	p.orderStop = stop
	p.mu.Unlock()

	p.logger.Infof("Order polling started (every %v)", interval)
	go p.loop(ctx, interval, stop, &p.orderInFlight, p.tickOrders)
}

// StopPolling cancels both loops. Safe to call repeatedly and safe when
// polling was never started.
func (p *Poller) StopPolling() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.msgStop != nil {
		close(p.msgStop)
		p.msgStop = nil
	}
	if p.orderStop != nil {
		close(p.orderStop)
		p.orderStop = nil
	}
	p.logger.Debug("polling stopped")
}

// LastChecks returns the watermarks of the most recent successful ticks.
func (p *Poller) LastChecks() (lastMessage, lastOrder time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMessageCheck, p.lastOrderCheck
}

func (p *Poller) loop(ctx context.Context, interval time.Duration, stop <-chan struct{}, inFlight *atomic.Bool, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick left in flight by a replaced loop still owns the
			// page; skip rather than launch a second navigation.
			if !inFlight.CompareAndSwap(false, true) {
				p.logger.Debug("previous tick still in flight, skipping")
				continue
			}
			tick(ctx)
			inFlight.Store(false)
		}
	}
}

// tickMessages extracts unread conversations and emits the new-messages
// delta only when the batch is non-empty. Errors are logged and the
// loop keeps going.
func (p *Poller) tickMessages(ctx context.Context) {
	unread, err := p.source.Messages(ctx, true)
	if err != nil {
		p.logger.Warnf("Message poll failed: %v", err)
		return
	}

	p.mu.Lock()
	p.lastMessageCheck = time.Now()
	p.mu.Unlock()

	if len(unread) > 0 {
		p.logger.Infof("%d new unread messages", len(unread))
		p.bus.Emit(events.NewMessages, unread)
	}
}

// tickOrders extracts orders in the New status and emits the new-orders
// delta only when the batch is non-empty.
func (p *Poller) tickOrders(ctx context.Context) {
	fresh, err := p.source.Orders(ctx, "New")
	if err != nil {
		p.logger.Warnf("Order poll failed: %v", err)
		return
	}

	p.mu.Lock()
	p.lastOrderCheck = time.Now()
	p.mu.Unlock()

	if len(fresh) > 0 {
		p.logger.Infof("%d new orders", len(fresh))
		p.bus.Emit(events.NewOrders, fresh)
	}
}
