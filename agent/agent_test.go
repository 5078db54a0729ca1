package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-agent/events"
	"storefront-agent/internal/types"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	config := types.DefaultConfig()
	config.SessionFile = filepath.Join(t.TempDir(), "session.json")
	return New(config, logrus.New())
}

func TestAgent_DataCallsBeforeInitialize(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	_, err := a.GetMessages(ctx, false)
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = a.GetOrders(ctx, "")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = a.GetMessageDetails(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotInitialized)

	err = a.SendMessage(ctx, "c1", "hi")
	assert.ErrorIs(t, err, ErrNotInitialized)

	err = a.MarkOrderShipped(ctx, "o1", "")
	assert.ErrorIs(t, err, ErrNotInitialized)

	_, err = a.Login(ctx, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestAgent_UnauthenticatedGuardPrecedesNavigation(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	// Force the initialized flag without a live browser: any navigation
	// attempt would fail with a browser error, so ErrNotAuthenticated
	// proves the guard fired before the page was touched.
	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()

	_, err := a.GetMessages(ctx, true)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = a.GetOrders(ctx, "New")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAgent_StopPollingThenCloseNeverStarted(t *testing.T) {
	a := newTestAgent(t)

	require.NotPanics(t, func() {
		a.StopPolling()
		a.Close()
		a.Close()
	})
}

func TestAgent_OnSubscribes(t *testing.T) {
	a := newTestAgent(t)

	fired := false
	a.On(events.MessagesUpdated, func(payload interface{}) { fired = true })

	a.bus.Emit(events.MessagesUpdated, types.MessagesSummary{})
	assert.True(t, fired)
}

func TestAgent_LastChecksStartZero(t *testing.T) {
	a := newTestAgent(t)

	msgCheck, orderCheck := a.LastChecks()
	assert.True(t, msgCheck.IsZero())
	assert.True(t, orderCheck.IsZero())
}

func TestAgent_PollingLifecycle(t *testing.T) {
	a := newTestAgent(t)
	ctx := context.Background()

	// Without authentication every tick fails fast; the loops must keep
	// running and stop cleanly regardless.
	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()

	a.StartMessagePolling(ctx, 10*time.Millisecond)
	a.StartOrderPolling(ctx, 10*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	require.NotPanics(t, func() {
		a.StopPolling()
		a.Close()
	})
}
