// Package agent wires the browser session, authenticator, extractor and
// poller into the single surface the rest of the application calls.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-agent/auth"
	"storefront-agent/events"
	"storefront-agent/extractor"
	"storefront-agent/internal/types"
	"storefront-agent/poller"
	"storefront-agent/session"
	"storefront-agent/utils"
)

// ErrNotInitialized is returned by data operations before Initialize
// succeeded.
var ErrNotInitialized = errors.New("agent not initialized")

// ErrNotAuthenticated mirrors the extractor's sentinel so callers can
// match on the agent package alone.
var ErrNotAuthenticated = extractor.ErrNotAuthenticated

// Agent automates one storefront seller account through one browser.
type Agent struct {
	config    *types.Config
	logger    types.Logger
	browser   *utils.BrowserClient
	auth      *auth.Authenticator
	extractor *extractor.Extractor
	poller    *poller.Poller
	bus       *events.Bus

	mu          sync.Mutex
	initialized bool
}

// New creates an agent. Nothing touches the network until Initialize.
func New(config *types.Config, logger types.Logger) *Agent {
	bus := events.NewBus(logger)
	browser := utils.NewBrowserClient(config, logger)
	store := session.NewStore(config.SessionFile, logger)
	authenticator := auth.NewAuthenticator(config, logger, browser, store)
	ext := extractor.NewExtractor(config, logger, browser, bus,
		authenticator.Authenticated, authenticator.ShopID)

	return &Agent{
		config:    config,
		logger:    logger,
		browser:   browser,
		auth:      authenticator,
		extractor: ext,
		poller:    poller.NewPoller(config, logger, ext, bus),
		bus:       bus,
	}
}

// Initialize launches the browser and tries to restore a persisted
// session. Browser launch failure is fatal and surfaced; a failed
// session restore is not.
func (a *Agent) Initialize(ctx context.Context) error {
	if err := a.browser.Initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()

	if a.auth.RestoreSession(ctx) {
		a.logger.Info("Authenticated from persisted session")
	}
	return nil
}

// Login authenticates the session. With nil credentials the manual
// window flow is used. Returns whether the session ended authenticated;
// a false result is retryable.
func (a *Agent) Login(ctx context.Context, creds *types.Credentials) (bool, error) {
	if err := a.requireInit(); err != nil {
		return false, err
	}
	if a.auth.Authenticated() {
		return true, nil
	}
	return a.auth.Login(ctx, creds)
}

// Authenticated reports whether data operations may proceed.
func (a *Agent) Authenticated() bool {
	return a.auth.Authenticated()
}

// GetMessages extracts the conversation inbox.
func (a *Agent) GetMessages(ctx context.Context, onlyUnread bool) ([]types.Conversation, error) {
	if err := a.requireInit(); err != nil {
		return nil, err
	}
	return a.extractor.Messages(ctx, onlyUnread)
}

// GetMessageDetails extracts one conversation thread.
func (a *Agent) GetMessageDetails(ctx context.Context, conversationID string) (*types.ConversationDetail, error) {
	if err := a.requireInit(); err != nil {
		return nil, err
	}
	return a.extractor.MessageDetail(ctx, conversationID)
}

// SendMessage replies inside a conversation.
func (a *Agent) SendMessage(ctx context.Context, conversationID, text string) error {
	if err := a.requireInit(); err != nil {
		return err
	}
	return a.extractor.SendMessage(ctx, conversationID, text)
}

// GetOrders extracts sold orders, optionally filtered by status.
func (a *Agent) GetOrders(ctx context.Context, statusFilter string) ([]types.Order, error) {
	if err := a.requireInit(); err != nil {
		return nil, err
	}
	return a.extractor.Orders(ctx, statusFilter)
}

// MarkOrderShipped completes the ship flow for one order.
func (a *Agent) MarkOrderShipped(ctx context.Context, orderID, trackingNumber string) error {
	if err := a.requireInit(); err != nil {
		return err
	}
	return a.extractor.MarkOrderShipped(ctx, orderID, trackingNumber)
}

// StartMessagePolling polls the inbox on the given interval (zero means
// the configured default).
func (a *Agent) StartMessagePolling(ctx context.Context, interval time.Duration) {
	a.poller.StartMessagePolling(ctx, interval)
}

// StartOrderPolling polls sold orders on the given interval.
func (a *Agent) StartOrderPolling(ctx context.Context, interval time.Duration) {
	a.poller.StartOrderPolling(ctx, interval)
}

// StopPolling cancels both poll loops. Safe whenever.
func (a *Agent) StopPolling() {
	a.poller.StopPolling()
}

// LastChecks returns the message and order poll watermarks.
func (a *Agent) LastChecks() (time.Time, time.Time) {
	return a.poller.LastChecks()
}

// On subscribes a handler to one of the named events.
func (a *Agent) On(event string, handler events.Handler) {
	a.bus.Subscribe(event, handler)
}

// Close stops polling and shuts the browser down. Safe to call even if
// Initialize never completed, and safe to call repeatedly.
func (a *Agent) Close() {
	a.poller.StopPolling()
	a.browser.Close()

	a.mu.Lock()
	a.initialized = false
	a.mu.Unlock()
	a.logger.Info("Agent closed")
}

func (a *Agent) requireInit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return ErrNotInitialized
	}
	return nil
}
