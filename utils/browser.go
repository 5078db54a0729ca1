package utils

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"storefront-agent/internal/types"
)

// stealthScript runs on every new document before any page script does.
// It trims the most common automation fingerprints: the webdriver flag,
// an empty plugin list, a bare language list, permission-query
// interception and a missing chrome runtime object.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
const origQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: origQuery(parameters)
);
window.chrome = window.chrome || {};
window.chrome.runtime = window.chrome.runtime || {};
console.debug = () => {};
`

// BrowserClient owns the single browser instance and the single page all
// navigation is serialized through.
type BrowserClient struct {
	config *types.Config
	logger types.Logger

	mu          sync.Mutex
	allocCancel context.CancelFunc
	pageCtx     context.Context
	pageCancel  context.CancelFunc
	initialized bool
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	// Suppress chromedp debug logging
	log.SetOutput(io.Discard)

	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

// Initialize launches the browser and opens the one page used for the
// lifetime of the process. Failure here is fatal to the whole agent.
func (b *BrowserClient) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.UserAgent(b.config.UserAgent),
		chromedp.WindowSize(1366, 768),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	// Start the browser and install the stealth overrides before any
	// navigation happens.
	err := chromedp.Run(pageCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(1366, 768),
	)
	if err != nil {
		pageCancel()
		allocCancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.pageCtx = pageCtx
	b.pageCancel = pageCancel
	b.initialized = true
	b.logger.Debug("browser initialized with single page context")
	return nil
}

// Run executes chromedp actions against the shared page under the
// navigation lock. Every component goes through here, so overlapping
// callers queue instead of racing on the page.
func (b *BrowserClient) Run(ctx context.Context, actions ...chromedp.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return fmt.Errorf("browser not initialized")
	}

	runCtx, cancel := context.WithTimeout(b.pageCtx, b.config.NavTimeout)
	defer cancel()

	// Honor cancellation from the caller's context as well.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	defer close(done)

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL on the shared page and waits out the render delay
// so client-side markup has a chance to settle.
func (b *BrowserClient) Navigate(ctx context.Context, url string) error {
	b.logger.Debugf("Navigating to %s", url)
	err := b.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.config.RenderDelay),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// PageHTML returns the full HTML of the current page.
func (b *BrowserClient) PageHTML(ctx context.Context) (string, error) {
	var html string
	if err := b.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	b.logger.Debugf("Retrieved page content (%d bytes)", len(html))
	return html, nil
}

// CurrentURL returns the URL of the shared page.
func (b *BrowserClient) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := b.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read current url: %w", err)
	}
	return url, nil
}

// Cookies reads all cookies from the browser session.
func (b *BrowserClient) Cookies(ctx context.Context) ([]types.SessionCookie, error) {
	var cookies []types.SessionCookie
	err := b.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, types.SessionCookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
			})
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	return cookies, nil
}

// SetCookies applies previously persisted cookies to the browser session.
func (b *BrowserClient) SetCookies(ctx context.Context, cookies []types.SessionCookie) error {
	err := b.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			param := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithHTTPOnly(c.HTTPOnly).
				WithSecure(c.Secure)
			if c.Expires > 0 {
				expires := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				param = param.WithExpires(&expires)
			}
			if err := param.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to apply session cookies: %w", err)
	}
	return nil
}

// Close shuts the browser down. Safe to call repeatedly and safe to call
// when Initialize never completed.
func (b *BrowserClient) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	if b.pageCancel != nil {
		b.pageCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.initialized = false
	b.logger.Debug("browser closed")
}
