// Package config defines the top-level configuration for the oddsboard
// server and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSBOARD_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Kalshi   KalshiConfig   `toml:"kalshi"`
	Redis    RedisConfig    `toml:"redis"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Trending TrendingConfig `toml:"trending"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	BaseURL     string   `toml:"base_url"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the number of requests allowed per client IP per
	// RateLimitWindow. Zero disables rate limiting entirely.
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// KalshiConfig holds Kalshi exchange API parameters. The API key and RSA
// private key are optional: market-data endpoints are public, but signed
// requests get a higher upstream rate limit tier.
type KalshiConfig struct {
	ApiKey            string   `toml:"api_key"`
	RsaPrivateKeyPath string   `toml:"rsa_private_key_path"`
	BaseURL           string   `toml:"base_url"`
	Timeout           duration `toml:"timeout"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// server falls back to in-process caching and rate limiting, which is fine
// for a single instance.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// OverlayConfig holds the polling and retention parameters for overlay
// sessions.
type OverlayConfig struct {
	PollInterval  duration `toml:"poll_interval"`
	HistoryWindow duration `toml:"history_window"`
	MaxPoints     int      `toml:"max_points"`
	PurgeInterval duration `toml:"purge_interval"`
	IdleTTL       duration `toml:"idle_ttl"`
}

// TrendingConfig holds parameters for the trending-markets endpoint.
type TrendingConfig struct {
	// FeaturedEvents is the list of event tickers always considered for the
	// trending list. Empty means use the built-in defaults.
	FeaturedEvents []string `toml:"featured_events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8000,
			BaseURL:         "http://localhost:8000",
			CORSOrigins:     []string{"*"},
			RateLimit:       20,
			RateLimitWindow: duration{time.Second},
		},
		Kalshi: KalshiConfig{
			BaseURL: "https://api.elections.kalshi.com/trade-api/v2",
			Timeout: duration{10 * time.Second},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Overlay: OverlayConfig{
			PollInterval:  duration{5 * time.Second},
			HistoryWindow: duration{5 * time.Minute},
			MaxPoints:     100,
			PurgeInterval: duration{30 * time.Second},
			IdleTTL:       duration{2 * time.Minute},
		},
		Trending: TrendingConfig{},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.BaseURL == "" {
		errs = append(errs, "server: base_url must not be empty")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server: rate_limit must be >= 0")
	}
	if c.Server.RateLimitWindow.Duration < 0 {
		errs = append(errs, "server: rate_limit_window must not be negative")
	}

	// Kalshi — the key and RSA path must be set together, or both empty.
	if c.Kalshi.BaseURL == "" {
		errs = append(errs, "kalshi: base_url must not be empty")
	}
	hasKey := c.Kalshi.ApiKey != ""
	hasPem := c.Kalshi.RsaPrivateKeyPath != ""
	if hasKey != hasPem {
		errs = append(errs, "kalshi: api_key and rsa_private_key_path must be set together")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Overlay
	if c.Overlay.PollInterval.Duration <= 0 {
		errs = append(errs, "overlay: poll_interval must be positive")
	}
	if c.Overlay.HistoryWindow.Duration <= 0 {
		errs = append(errs, "overlay: history_window must be positive")
	}
	if c.Overlay.MaxPoints < 2 {
		errs = append(errs, "overlay: max_points must be >= 2 to compute deltas")
	}
	if c.Overlay.IdleTTL.Duration <= 0 {
		errs = append(errs, "overlay: idle_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
