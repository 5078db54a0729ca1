package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"storefront-agent/internal/types"
	"storefront-agent/session"
	"storefront-agent/utils"
)

func TestClassifyLogin_SignInPathPrecedence(t *testing.T) {
	// Markers present but still on the sign-in page: logged out.
	markers := PageMarkers{HasUserID: true, HasShopManager: true, HasYourLink: true}
	assert.False(t, classifyLogin("https://shop.example/signin", markers))
	assert.False(t, classifyLogin("https://shop.example/signin?from=header", markers))
}

func TestClassifyLogin_AnyMarkerSuffices(t *testing.T) {
	url := "https://shop.example/your/account"

	assert.True(t, classifyLogin(url, PageMarkers{HasUserID: true}))
	assert.True(t, classifyLogin(url, PageMarkers{HasShopManager: true}))
	assert.True(t, classifyLogin(url, PageMarkers{HasYourLink: true}))
}

func TestClassifyLogin_NoMarkers(t *testing.T) {
	assert.False(t, classifyLogin("https://shop.example/", PageMarkers{}))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "two-factor-pending", StateTwoFactorPending.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestAuthenticator_InitialState(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()
	browser := utils.NewBrowserClient(config, logger)
	store := session.NewStore(filepath.Join(t.TempDir(), "session.json"), logger)

	a := NewAuthenticator(config, logger, browser, store)

	assert.Equal(t, StateUnauthenticated, a.State())
	assert.False(t, a.Authenticated())
	assert.Equal(t, "", a.ShopID())
}

func TestAuthenticator_RestoreSession_MissingFileIsSilent(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()
	browser := utils.NewBrowserClient(config, logger)
	store := session.NewStore(filepath.Join(t.TempDir(), "nope.json"), logger)

	a := NewAuthenticator(config, logger, browser, store)

	// No session file: restore fails without error and leaves the
	// authenticator unauthenticated.
	ok := a.RestoreSession(context.Background())
	assert.False(t, ok)
	assert.Equal(t, StateUnauthenticated, a.State())
	assert.False(t, a.Authenticated())
}
