package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/rnp/registry"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RNP_PORT", "")
	cfg := Load()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.NoSandbox)
	assert.Equal(t, 80*time.Second, cfg.Browser.PageTimeout)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, registry.DefaultBaseURL, cfg.Registry.BaseURL)
	assert.Equal(t, 2, cfg.Concurrency.MaxConcurrent)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_PortPrecedence(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RNP_PORT", "9000")
	assert.Equal(t, 9000, Load().Server.Port)

	t.Setenv("PORT", "7000")
	assert.Equal(t, 7000, Load().Server.Port, "PORT wins over RNP_PORT")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RNP_PAGE_TIMEOUT", "15s")
	t.Setenv("RNP_API_KEYS", " a, ,b ")
	t.Setenv("RNP_HEADLESS", "false")
	t.Setenv("RNP_MAX_CONCURRENT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 15*time.Second, cfg.Browser.PageTimeout)
	assert.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 2, cfg.Concurrency.MaxConcurrent, "malformed values fall back")
}
