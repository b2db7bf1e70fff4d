// Package config loads service configuration from the environment and
// from an optional exclusions file.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the root configuration for the sessions service.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Server      ServerConfig
	Umami       UmamiConfig
	Processing  ProcessingConfig
	Favicon     FaviconConfig
	Redis       RedisConfig
	Logging     LoggingConfig
	Exclusions  ExclusionsConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// UmamiConfig configures the upstream analytics API client.
type UmamiConfig struct {
	BaseURL     string        `envconfig:"UMAMI_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"UMAMI_API_KEY"`
	WebsiteID   string        `envconfig:"UMAMI_WEBSITE_ID"`
	Timeout     time.Duration `envconfig:"UMAMI_TIMEOUT" default:"10s"`
	Retries     int           `envconfig:"UMAMI_RETRIES" default:"3"`
	LogPayloads bool          `envconfig:"UMAMI_LOG_PAYLOADS" default:"false"`
}

// ProcessingConfig configures the session filtering pass.
type ProcessingConfig struct {
	MinSessionDuration     float64 `envconfig:"PROCESSING_MIN_SESSION_DURATION" default:"1"`
	FilterBots             bool    `envconfig:"PROCESSING_FILTER_BOTS" default:"true"`
	FilterCrawlers         bool    `envconfig:"PROCESSING_FILTER_CRAWLERS" default:"true"`
	ValidateRequiredFields bool    `envconfig:"PROCESSING_VALIDATE_REQUIRED_FIELDS" default:"true"`
	LogFilteredRecords     bool    `envconfig:"PROCESSING_LOG_FILTERED_RECORDS" default:"false"`
	LogProcessingStats     bool    `envconfig:"PROCESSING_LOG_STATS" default:"true"`
	PageSize               int     `envconfig:"PROCESSING_PAGE_SIZE" default:"50"`
}

// FaviconConfig configures the favicon resolver and its cache.
type FaviconConfig struct {
	CacheTTL     time.Duration `envconfig:"FAVICON_CACHE_TTL" default:"720h"`
	ProbeTimeout time.Duration `envconfig:"FAVICON_PROBE_TIMEOUT" default:"3s"`
}

// RedisConfig configures the optional Redis favicon cache backend. When
// URL is empty the in-memory backend is used.
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
	Output string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

// ExclusionsConfig points at the optional YAML file seeding the session
// and website exclusion registries.
type ExclusionsConfig struct {
	File string `envconfig:"EXCLUSIONS_FILE"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Umami.Retries < 0 {
		return fmt.Errorf("umami retries must be non-negative, got %d", c.Umami.Retries)
	}
	if c.Umami.Timeout <= 0 {
		return fmt.Errorf("umami timeout must be positive, got %s", c.Umami.Timeout)
	}
	if c.Processing.PageSize < 1 {
		return fmt.Errorf("processing page size must be positive, got %d", c.Processing.PageSize)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}
	return nil
}
