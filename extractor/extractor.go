// Package extractor navigates the storefront's seller pages and pulls
// structured records out of volatile HTML. Every logical field is
// resolved through an ordered chain of candidate selectors so a markup
// change degrades one field, not the whole batch.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"storefront-agent/events"
	"storefront-agent/internal/types"
	"storefront-agent/utils"
)

// ErrNotAuthenticated is returned by every extraction entry point when
// no authenticated session exists. No navigation is attempted in that
// case: scraping an unauthenticated page would produce meaningless data.
var ErrNotAuthenticated = errors.New("not authenticated: login before extracting data")

// Extractor runs DOM extraction against the shared browser page.
type Extractor struct {
	config  *types.Config
	logger  types.Logger
	browser *utils.BrowserClient
	bus     *events.Bus
	authed  func() bool
	shopID  func() string
}

// NewExtractor creates an extractor. authed and shopID are read from the
// authenticator; the extractor never mutates session state.
func NewExtractor(config *types.Config, logger types.Logger, browser *utils.BrowserClient, bus *events.Bus, authed func() bool, shopID func() string) *Extractor {
	return &Extractor{
		config:  config,
		logger:  logger,
		browser: browser,
		bus:     bus,
		authed:  authed,
		shopID:  shopID,
	}
}

// Messages extracts the conversation inbox. The messages-updated summary
// event fires on every call, including when nothing was found; when
// onlyUnread is set the returned slice is filtered down to unread rows.
func (e *Extractor) Messages(ctx context.Context, onlyUnread bool) ([]types.Conversation, error) {
	doc, err := e.fetch(ctx, e.messagesURL())
	if err != nil {
		return nil, err
	}

	conversations := parseConversations(doc, e.config.BaseURL)

	summary := summarizeConversations(conversations)
	e.bus.Emit(events.MessagesUpdated, summary)
	e.logger.Infof("Extracted %d conversations (%d unread, %d quote requests)",
		summary.Total, summary.Unread, summary.QuoteRequests)

	if onlyUnread {
		var unread []types.Conversation
		for _, c := range conversations {
			if c.IsUnread {
				unread = append(unread, c)
			}
		}
		return unread, nil
	}
	return conversations, nil
}

// MessageDetail extracts the full thread of one conversation.
func (e *Extractor) MessageDetail(ctx context.Context, conversationID string) (*types.ConversationDetail, error) {
	url := fmt.Sprintf("%s/your/conversations/%s", e.config.BaseURL, conversationID)
	doc, err := e.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	detail := parseConversationDetail(doc, e.config.BaseURL)
	e.logger.Debugf("Extracted %d messages from conversation %s", len(detail.Messages), conversationID)
	return detail, nil
}

// Orders extracts the sold-orders page. The orders-updated summary event
// fires on every call; statusFilter, when non-empty, filters the return
// value by case-insensitive status equality.
func (e *Extractor) Orders(ctx context.Context, statusFilter string) ([]types.Order, error) {
	doc, err := e.fetch(ctx, e.ordersURL())
	if err != nil {
		return nil, err
	}

	orders := parseOrders(doc)

	summary := summarizeOrders(orders)
	e.bus.Emit(events.OrdersUpdated, summary)
	e.logger.Infof("Extracted %d orders (%d new, %d print orders)",
		summary.Total, summary.New, summary.PrintOrders)

	if statusFilter != "" {
		var filtered []types.Order
		for _, o := range orders {
			if strings.EqualFold(o.Status, statusFilter) {
				filtered = append(filtered, o)
			}
		}
		return filtered, nil
	}
	return orders, nil
}

// SendMessage types a reply into an open conversation and submits it.
func (e *Extractor) SendMessage(ctx context.Context, conversationID, text string) error {
	url := fmt.Sprintf("%s/your/conversations/%s", e.config.BaseURL, conversationID)
	doc, err := e.fetch(ctx, url)
	if err != nil {
		return err
	}

	replyBox := firstPresentSelector(doc, []string{
		"textarea[name='message']",
		"#message-text",
		".reply-form textarea",
		"textarea",
	})
	if replyBox == "" {
		return fmt.Errorf("reply box not found in conversation %s", conversationID)
	}

	sendButton := firstPresentSelector(doc, []string{
		".reply-form button[type='submit']",
		"button.send-message",
		"button[type='submit']",
	})
	if sendButton == "" {
		return fmt.Errorf("send button not found in conversation %s", conversationID)
	}

	err = e.browser.Run(ctx,
		chromedp.Click(replyBox, chromedp.ByQuery),
		chromedp.SendKeys(replyBox, text, chromedp.ByQuery),
		chromedp.Click(sendButton, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to send message in conversation %s: %w", conversationID, err)
	}

	e.logger.Infof("Sent message in conversation %s", conversationID)
	return nil
}

// MarkOrderShipped clicks through the ship flow for one order, filling
// in the tracking number when one is given.
func (e *Extractor) MarkOrderShipped(ctx context.Context, orderID, trackingNumber string) error {
	doc, err := e.fetch(ctx, e.ordersURL())
	if err != nil {
		return err
	}

	shipButton := firstPresentSelector(doc, []string{
		fmt.Sprintf("[data-order-id='%s'] button.mark-shipped", orderID),
		fmt.Sprintf("[data-order-id='%s'] .ship-button", orderID),
		fmt.Sprintf("#order-%s button.mark-shipped", orderID),
	})
	if shipButton == "" {
		return fmt.Errorf("ship button not found for order %s", orderID)
	}

	if err := e.browser.Run(ctx, chromedp.Click(shipButton, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to open ship dialog for order %s: %w", orderID, err)
	}

	if trackingNumber != "" {
		// The dialog renders after the click, so probe the live page again.
		actions := []chromedp.Action{
			chromedp.SendKeys("input[name='tracking_number'], #tracking-number", trackingNumber, chromedp.ByQuery),
		}
		if err := e.browser.Run(ctx, actions...); err != nil {
			e.logger.Warnf("Could not fill tracking number for order %s: %v", orderID, err)
		}
	}

	err = e.browser.Run(ctx,
		chromedp.Click("button.confirm-shipping, .ship-dialog button[type='submit']", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to confirm shipping for order %s: %w", orderID, err)
	}

	e.logger.Infof("Marked order %s shipped", orderID)
	return nil
}

// fetch guards on authentication, navigates the shared page and parses
// the settled HTML. Navigation errors propagate; per-field misses never
// reach here.
func (e *Extractor) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	if !e.authed() {
		return nil, ErrNotAuthenticated
	}

	if err := e.browser.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("extraction navigation failed: %w", err)
	}

	html, err := e.browser.PageHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("extraction failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("extraction failed to parse page: %w", err)
	}
	return doc, nil
}

// messagesURL is shop-scoped when the shop identity is known.
func (e *Extractor) messagesURL() string {
	if id := e.shopID(); id != "" {
		return fmt.Sprintf("%s/your/shops/%s/conversations", e.config.BaseURL, id)
	}
	return e.config.BaseURL + "/messages"
}

// ordersURL is shop-scoped when the shop identity is known.
func (e *Extractor) ordersURL() string {
	if id := e.shopID(); id != "" {
		return fmt.Sprintf("%s/your/shops/%s/orders/sold", e.config.BaseURL, id)
	}
	return e.config.BaseURL + "/your/orders/sold"
}

// firstPresentSelector returns the first selector that matches at least
// one element in the document.
func firstPresentSelector(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return sel
		}
	}
	return ""
}
