package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	// Broker endpoints. KiteBaseURL serves the cookie-based web login,
	// KiteAPIBaseURL the official token-exchange API and instrument dump.
	KiteBaseURL    string `env:"KITE_BASE_URL" envDefault:"https://kite.zerodha.com"`
	KiteAPIBaseURL string `env:"KITE_API_BASE_URL" envDefault:"https://api.kite.trade"`

	// Exchange-local timezone for the instrument freshness cutoff.
	ExchangeTimezone string `env:"EXCHANGE_TIMEZONE" envDefault:"Asia/Kolkata"`

	// Optional hex-encoded AES-256 key; when set, stored TOTP and API
	// secrets are encrypted at rest.
	CredentialEncryptionKey string `env:"CREDENTIAL_ENCRYPTION_KEY"`

	HTTPTimeoutSeconds   int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"20"`
	LoginRateLimitPerMin int    `env:"LOGIN_RATE_LIMIT_PER_MIN" envDefault:"10"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ExchangeTimezone)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
