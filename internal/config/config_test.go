package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UMAMI_BASE_URL", "http://localhost:3000/api")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Umami.Timeout)
	assert.Equal(t, 3, cfg.Umami.Retries)
	assert.Equal(t, 1.0, cfg.Processing.MinSessionDuration)
	assert.True(t, cfg.Processing.FilterBots)
	assert.True(t, cfg.Processing.FilterCrawlers)
	assert.True(t, cfg.Processing.ValidateRequiredFields)
	assert.Equal(t, 50, cfg.Processing.PageSize)
	assert.Equal(t, 720*time.Hour, cfg.Favicon.CacheTTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UMAMI_BASE_URL", "https://analytics.example/api")
	t.Setenv("UMAMI_API_KEY", "secret")
	t.Setenv("UMAMI_WEBSITE_ID", "web-1")
	t.Setenv("UMAMI_RETRIES", "5")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("PROCESSING_FILTER_BOTS", "false")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Umami.APIKey)
	assert.Equal(t, "web-1", cfg.Umami.WebsiteID)
	assert.Equal(t, 5, cfg.Umami.Retries)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Processing.FilterBots)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("UMAMI_BASE_URL", "placeholder") // registers restore on cleanup
	os.Unsetenv("UMAMI_BASE_URL")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8080},
			Umami:      UmamiConfig{BaseURL: "http://x", Timeout: time.Second, Retries: 3},
			Processing: ProcessingConfig{PageSize: 50},
			Logging:    LoggingConfig{Format: "json"},
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Umami.Retries = -1
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Umami.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Processing.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}
