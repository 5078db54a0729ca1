package auth

import "strings"

// State is the authenticator's position in the login flow.
type State int

const (
	StateUnauthenticated State = iota
	StateSessionRestorePending
	StateCredentialedLoginPending
	StateTwoFactorPending
	StateManualLoginPending
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateSessionRestorePending:
		return "session-restore-pending"
	case StateCredentialedLoginPending:
		return "credentialed-login-pending"
	case StateTwoFactorPending:
		return "two-factor-pending"
	case StateManualLoginPending:
		return "manual-login-pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// signInPath marks the storefront's login page. Its presence in the URL
// always classifies as logged out, whatever markers the page carries.
const signInPath = "/signin"

// PageMarkers are the authenticated-only signals read off the current page.
type PageMarkers struct {
	HasUserID      bool `json:"user"`
	HasShopManager bool `json:"shop"`
	HasYourLink    bool `json:"your"`
}

// classifyLogin decides whether the current page belongs to a logged-in
// session. Pure function: sign-in path takes precedence, then any
// authenticated-only marker counts.
func classifyLogin(url string, markers PageMarkers) bool {
	if strings.Contains(url, signInPath) {
		return false
	}
	return markers.HasUserID || markers.HasShopManager || markers.HasYourLink
}
