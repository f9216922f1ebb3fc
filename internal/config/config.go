// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds everything the server needs to start.
type Config struct {
	Port string

	// DatabaseURL selects PostgreSQL; empty falls back to the in-memory
	// store (development only, nothing persists).
	DatabaseURL string

	// RedisURL enables the quote price cache when set.
	RedisURL string

	QuoteAPIURL   string
	QuoteAPIKey   string
	QuoteTimeout  time.Duration
	QuoteCacheTTL time.Duration

	JWTSecret    string
	StartingCash decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		QuoteAPIURL:   getenv("QUOTE_API_URL", "https://www.alphavantage.co"),
		QuoteAPIKey:   os.Getenv("QUOTE_API_KEY"),
		QuoteTimeout:  5 * time.Second,
		QuoteCacheTTL: 5 * time.Minute,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		StartingCash:  decimal.NewFromInt(10000),
	}

	if v := os.Getenv("QUOTE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTE_TIMEOUT %q: %w", v, err)
		}
		cfg.QuoteTimeout = d
	}

	if v := os.Getenv("QUOTE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid QUOTE_CACHE_TTL %q: %w", v, err)
		}
		cfg.QuoteCacheTTL = d
	}

	if v := os.Getenv("STARTING_CASH"); v != "" {
		c, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STARTING_CASH %q: %w", v, err)
		}
		cfg.StartingCash = c
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for required values.
func (c *Config) Validate() error {
	if c.QuoteAPIKey == "" {
		return fmt.Errorf("QUOTE_API_KEY not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	if c.QuoteTimeout <= 0 {
		return fmt.Errorf("quote timeout must be positive")
	}
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("starting cash must not be negative")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
