// Package auth drives the storefront login flow: session restore,
// credentialed login with human pacing, the two-factor wait and the
// manual fallback, modeled as an explicit state machine.
package auth

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"storefront-agent/internal/types"
	"storefront-agent/session"
	"storefront-agent/utils"
)

// Selector lists probed on live pages. Same fallback-chain idea as the
// extractor, expressed as querySelector alternatives.
const (
	markerProbe = `({
		user: !!document.querySelector('[data-user-id], #user-profile, .user-nav'),
		shop: !!document.querySelector('.shop-manager, [data-shop-id], a[href*="/your/shops/"]'),
		your: !!document.querySelector('a[href*="/your/"]')
	})`
	twoFactorProbe = `!!document.querySelector('input[name="verification_code"], #verification-code, input[autocomplete="one-time-code"]')`
	shopIDProbe    = `(() => {
		const el = document.querySelector('[data-shop-id]');
		if (el) return el.getAttribute('data-shop-id');
		const link = document.querySelector('a[href*="/your/shops/"]');
		if (link) {
			const m = link.getAttribute('href').match(/\/your\/shops\/([^\/?#]+)/);
			if (m) return m[1];
		}
		return '';
	})()`

	emailField    = `input[name="email"], #join_neu_email_field, input[type="email"]`
	passwordField = `input[name="password"], #join_neu_password_field, input[type="password"]`
	submitButton  = `button[type="submit"], button[name="submit_attempt"]`
)

const statusPollInterval = 2 * time.Second

// Authenticator owns the Session and is the only component that mutates it.
type Authenticator struct {
	config  *types.Config
	logger  types.Logger
	browser *utils.BrowserClient
	store   *session.Store

	mu      sync.RWMutex
	state   State
	session *types.Session
}

// NewAuthenticator creates an authenticator in the unauthenticated state.
func NewAuthenticator(config *types.Config, logger types.Logger, browser *utils.BrowserClient, store *session.Store) *Authenticator {
	return &Authenticator{
		config:  config,
		logger:  logger,
		browser: browser,
		store:   store,
		state:   StateUnauthenticated,
		session: &types.Session{},
	}
}

// State returns the current login state.
func (a *Authenticator) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Authenticated reports whether extraction may proceed.
func (a *Authenticator) Authenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.Authenticated
}

// ShopID returns the shop identifier, empty until one was extracted.
func (a *Authenticator) ShopID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session.ShopID
}

func (a *Authenticator) transition(to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.session.Authenticated = to == StateAuthenticated
	a.mu.Unlock()
	a.logger.Debugf("auth state %s -> %s", from, to)
}

// RestoreSession applies persisted cookies and checks whether they still
// carry a login. Any failure is silent: restore is an optimization, a
// fresh login is always available.
func (a *Authenticator) RestoreSession(ctx context.Context) bool {
	a.transition(StateSessionRestorePending)

	sess, err := a.store.Load()
	if err != nil {
		a.logger.Debugf("No restorable session: %v", err)
		a.transition(StateUnauthenticated)
		return false
	}

	if err := a.browser.SetCookies(ctx, sess.Cookies); err != nil {
		a.logger.Warnf("Failed to apply persisted cookies: %v", err)
		a.transition(StateUnauthenticated)
		return false
	}

	if err := a.browser.Navigate(ctx, a.config.BaseURL+"/your/account"); err != nil {
		a.logger.Warnf("Session restore navigation failed: %v", err)
		a.transition(StateUnauthenticated)
		return false
	}

	if !a.CheckLoginStatus(ctx) {
		a.logger.Info("Persisted session is stale, login required")
		a.transition(StateUnauthenticated)
		return false
	}

	a.mu.Lock()
	a.session.Cookies = sess.Cookies
	a.session.ShopID = sess.ShopID
	a.mu.Unlock()
	a.transition(StateAuthenticated)
	a.extractShopID(ctx)
	a.logger.Info("Session restored from disk")
	return true
}

// Login drives the sign-in flow. With credentials it fills the form with
// human pacing; without, or after a failed credentialed attempt, it
// falls back to waiting for a manual login in the visible browser. A
// failed credentialed attempt is never retried automatically.
func (a *Authenticator) Login(ctx context.Context, creds *types.Credentials) (bool, error) {
	if err := a.browser.Navigate(ctx, a.config.BaseURL+signInPath); err != nil {
		return false, fmt.Errorf("failed to open sign-in page: %w", err)
	}

	if creds != nil {
		if ok := a.credentialedLogin(ctx, creds); ok {
			return true, nil
		}
		a.logger.Warn("Credentialed login did not succeed, waiting for manual login")
	}

	return a.manualLogin(ctx), nil
}

// credentialedLogin fills and submits the sign-in form. Pacing is a
// best-effort heuristic against automation-pattern detection, not a
// guarantee.
func (a *Authenticator) credentialedLogin(ctx context.Context, creds *types.Credentials) bool {
	a.transition(StateCredentialedLoginPending)

	humanPause(400, 900)
	if err := a.typeHuman(ctx, emailField, creds.Email); err != nil {
		a.logger.Warnf("Failed to fill email field: %v", err)
		return false
	}

	humanPause(300, 700)
	if err := a.typeHuman(ctx, passwordField, creds.Password); err != nil {
		a.logger.Warnf("Failed to fill password field: %v", err)
		return false
	}

	humanPause(200, 600)
	if err := a.clickLikeHuman(ctx, submitButton); err != nil {
		a.logger.Warnf("Failed to submit sign-in form: %v", err)
		return false
	}

	// Give the submit a moment to navigate or surface a challenge.
	_ = a.browser.Run(ctx, chromedp.Sleep(a.config.RenderDelay+3*time.Second))

	if a.twoFactorPresent(ctx) {
		a.transition(StateTwoFactorPending)
		a.logger.Info("Two-factor challenge detected, waiting for completion")
		if !a.waitForStatus(ctx, a.config.TwoFactorWait) {
			a.logger.Warn("Two-factor wait timed out")
			return false
		}
	}

	if !a.CheckLoginStatus(ctx) {
		return false
	}

	a.finishLogin(ctx)
	return true
}

// manualLogin waits for a human to complete the login in the browser
// window. Terminal fallback, always available.
func (a *Authenticator) manualLogin(ctx context.Context) bool {
	a.transition(StateManualLoginPending)
	a.logger.Infof("Waiting up to %v for manual login", a.config.ManualLoginWait)

	if !a.waitForStatus(ctx, a.config.ManualLoginWait) {
		a.logger.Warn("Manual login timed out")
		a.transition(StateUnauthenticated)
		return false
	}

	a.finishLogin(ctx)
	return true
}

// CheckLoginStatus classifies the current page. Read-only: it looks at
// the URL and the authenticated-only markers, nothing else.
func (a *Authenticator) CheckLoginStatus(ctx context.Context) bool {
	url, err := a.browser.CurrentURL(ctx)
	if err != nil {
		a.logger.Debugf("Could not read current url: %v", err)
		return false
	}

	var markers PageMarkers
	if err := a.browser.Run(ctx, chromedp.Evaluate(markerProbe, &markers)); err != nil {
		a.logger.Debugf("Could not read page markers: %v", err)
		return false
	}

	return classifyLogin(url, markers)
}

// finishLogin records the authenticated state, extracts the shop
// identity and persists the session. Persistence failures are logged,
// never fatal.
func (a *Authenticator) finishLogin(ctx context.Context) {
	a.transition(StateAuthenticated)
	a.extractShopID(ctx)

	cookies, err := a.browser.Cookies(ctx)
	if err != nil {
		a.logger.Warnf("Could not read cookies for persistence: %v", err)
		return
	}

	a.mu.Lock()
	a.session.Cookies = cookies
	sess := &types.Session{Cookies: cookies, ShopID: a.session.ShopID}
	a.mu.Unlock()

	if err := a.store.Save(sess); err != nil {
		a.logger.Warnf("Failed to persist session: %v", err)
		return
	}
	a.logger.Info("Login successful, session persisted")
}

func (a *Authenticator) extractShopID(ctx context.Context) {
	var id string
	if err := a.browser.Run(ctx, chromedp.Evaluate(shopIDProbe, &id)); err != nil {
		a.logger.Debugf("Could not extract shop id: %v", err)
		return
	}
	if id == "" {
		return
	}
	a.mu.Lock()
	a.session.ShopID = id
	a.mu.Unlock()
	a.logger.Infof("Shop identity: %s", id)
}

// waitForStatus polls CheckLoginStatus every 2 seconds until it reports
// logged in or the wait elapses.
func (a *Authenticator) waitForStatus(ctx context.Context, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(statusPollInterval):
		}
		if a.CheckLoginStatus(ctx) {
			return true
		}
	}
	return false
}

func (a *Authenticator) twoFactorPresent(ctx context.Context) bool {
	var present bool
	if err := a.browser.Run(ctx, chromedp.Evaluate(twoFactorProbe, &present)); err != nil {
		return false
	}
	return present
}

// typeHuman triple-clicks the field to select any prefilled value, then
// types with per-keystroke jitter.
func (a *Authenticator) typeHuman(ctx context.Context, selector, text string) error {
	x, y, err := a.elementCenter(ctx, selector)
	if err != nil {
		return err
	}
	if err := a.browser.Run(ctx, chromedp.MouseClickXY(x, y, chromedp.ClickCount(3))); err != nil {
		return err
	}
	for _, ch := range text {
		if err := a.browser.Run(ctx, chromedp.KeyEvent(string(ch))); err != nil {
			return err
		}
		humanPause(50, 150)
	}
	return nil
}

// clickLikeHuman moves the mouse to the element's bounding-box center
// before clicking.
func (a *Authenticator) clickLikeHuman(ctx context.Context, selector string) error {
	x, y, err := a.elementCenter(ctx, selector)
	if err != nil {
		return err
	}
	err = a.browser.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return err
	}
	humanPause(100, 300)
	return a.browser.Run(ctx, chromedp.MouseClickXY(x, y))
}

func (a *Authenticator) elementCenter(ctx context.Context, selector string) (float64, float64, error) {
	probe := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return [r.left + r.width / 2, r.top + r.height / 2];
	})()`, selector)

	var center []float64
	if err := a.browser.Run(ctx, chromedp.Evaluate(probe, &center)); err != nil {
		return 0, 0, err
	}
	if len(center) != 2 {
		return 0, 0, fmt.Errorf("element not found: %s", selector)
	}
	return center[0], center[1], nil
}

// humanPause sleeps a random duration between min and max milliseconds.
func humanPause(min, max int) {
	time.Sleep(time.Duration(min+rand.Intn(max-min)) * time.Millisecond)
}
