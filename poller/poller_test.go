package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"storefront-agent/events"
	"storefront-agent/internal/types"
)

// fakeSource counts calls and returns canned results.
type fakeSource struct {
	mu            sync.Mutex
	messageCalls  int
	orderCalls    int
	conversations []types.Conversation
	orders        []types.Order
	err           error
	block         chan struct{}
}

func (f *fakeSource) Messages(ctx context.Context, onlyUnread bool) ([]types.Conversation, error) {
	f.mu.Lock()
	f.messageCalls++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return f.conversations, f.err
}

func (f *fakeSource) Orders(ctx context.Context, statusFilter string) ([]types.Order, error) {
	f.mu.Lock()
	f.orderCalls++
	f.mu.Unlock()
	return f.orders, f.err
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messageCalls, f.orderCalls
}

func newTestPoller(source Source) (*Poller, *events.Bus) {
	logger := logrus.New()
	bus := events.NewBus(logger)
	return NewPoller(types.DefaultConfig(), logger, source, bus), bus
}

func TestPoller_DeltaOnlyWhenNonEmpty(t *testing.T) {
	source := &fakeSource{}
	p, bus := newTestPoller(source)

	var deltas int32
	bus.Subscribe(events.NewMessages, func(payload interface{}) {
		atomic.AddInt32(&deltas, 1)
	})

	p.StartMessagePolling(context.Background(), 20*time.Millisecond)
	time.Sleep(90 * time.Millisecond)
	p.StopPolling()

	msgCalls, _ := source.calls()
	assert.GreaterOrEqual(t, msgCalls, 2, "extraction ran on every tick")
	assert.Equal(t, int32(0), atomic.LoadInt32(&deltas), "no delta for empty batches")

	// Non-empty batch now emits the delta.
	source.conversations = []types.Conversation{{ID: "c1", IsUnread: true}}
	p.StartMessagePolling(context.Background(), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	p.StopPolling()

	assert.Greater(t, atomic.LoadInt32(&deltas), int32(0))
}

func TestPoller_NewOrdersDelta(t *testing.T) {
	source := &fakeSource{orders: []types.Order{{OrderID: "o1", Status: "New"}}}
	p, bus := newTestPoller(source)

	var got []types.Order
	var mu sync.Mutex
	bus.Subscribe(events.NewOrders, func(payload interface{}) {
		mu.Lock()
		got = payload.([]types.Order)
		mu.Unlock()
	})

	p.StartOrderPolling(context.Background(), 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	p.StopPolling()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].OrderID)
}

func TestPoller_RestartLeavesOneTimer(t *testing.T) {
	source := &fakeSource{}
	p, _ := newTestPoller(source)

	// Restart with a long interval: the original fast timer must be gone.
	p.StartMessagePolling(context.Background(), 10*time.Millisecond)
	p.StartMessagePolling(context.Background(), time.Hour)
	time.Sleep(80 * time.Millisecond)
	p.StopPolling()

	msgCalls, _ := source.calls()
	assert.LessOrEqual(t, msgCalls, 1, "fast timer from before the restart kept ticking")
}

func TestPoller_ErrorDoesNotStopLoop(t *testing.T) {
	source := &fakeSource{err: errors.New("navigation failed")}
	p, _ := newTestPoller(source)

	p.StartMessagePolling(context.Background(), 15*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	p.StopPolling()

	msgCalls, _ := source.calls()
	assert.GreaterOrEqual(t, msgCalls, 3, "loop keeps ticking through errors")

	last, _ := p.LastChecks()
	assert.True(t, last.IsZero(), "failed ticks do not advance the watermark")
}

func TestPoller_StopNeverStartedIsSafe(t *testing.T) {
	p, _ := newTestPoller(&fakeSource{})

	assert.NotPanics(t, func() {
		p.StopPolling()
		p.StopPolling()
	})
}

func TestPoller_InFlightTickIsNotDuplicated(t *testing.T) {
	block := make(chan struct{})
	source := &fakeSource{block: block}
	p, _ := newTestPoller(source)

	p.StartMessagePolling(context.Background(), 15*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	// The first tick is still blocked inside Messages; later ticks must
	// have been skipped instead of piling onto the shared page.
	msgCalls, _ := source.calls()
	assert.Equal(t, 1, msgCalls)

	close(block)
	p.StopPolling()
}

func TestPoller_WatermarkAdvances(t *testing.T) {
	source := &fakeSource{}
	p, _ := newTestPoller(source)

	before := time.Now()
	p.StartMessagePolling(context.Background(), 15*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	p.StopPolling()

	last, lastOrder := p.LastChecks()
	assert.False(t, last.IsZero())
	assert.True(t, last.After(before) || last.Equal(before))
	assert.True(t, lastOrder.IsZero(), "order watermark untouched by message polling")
}
