package utils

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"storefront-agent/internal/types"
)

func TestNewBrowserClient(t *testing.T) {
	config := types.DefaultConfig()
	logger := logrus.New()

	client := NewBrowserClient(config, logger)

	assert.NotNil(t, client)
	assert.Equal(t, config, client.config)
	assert.Equal(t, logger, client.logger)
	assert.False(t, client.initialized)
}

func TestBrowserClient_RunBeforeInitialize(t *testing.T) {
	client := NewBrowserClient(types.DefaultConfig(), logrus.New())

	err := client.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}

func TestBrowserClient_CloseBeforeInitialize(t *testing.T) {
	client := NewBrowserClient(types.DefaultConfig(), logrus.New())

	// Should not panic
	client.Close()
	client.Close()
}

func TestBrowserClient_NavigateBeforeInitialize(t *testing.T) {
	client := NewBrowserClient(types.DefaultConfig(), logrus.New())

	err := client.Navigate(context.Background(), "https://shop.example")
	assert.Error(t, err)

	_, err = client.CurrentURL(context.Background())
	assert.Error(t, err)

	_, err = client.Cookies(context.Background())
	assert.Error(t, err)
}
