package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSBOARD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. An empty path skips the
// file entirely and configures from defaults plus the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ODDSBOARD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "ODDSBOARD_SERVER_PORT")
	setStr(&cfg.Server.BaseURL, "ODDSBOARD_SERVER_BASE_URL")
	setStringSlice(&cfg.Server.CORSOrigins, "ODDSBOARD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "ODDSBOARD_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "ODDSBOARD_SERVER_RATE_LIMIT_WINDOW")

	// ── Kalshi ──
	setStr(&cfg.Kalshi.ApiKey, "ODDSBOARD_KALSHI_API_KEY")
	setStr(&cfg.Kalshi.RsaPrivateKeyPath, "ODDSBOARD_KALSHI_RSA_PRIVATE_KEY_PATH")
	setStr(&cfg.Kalshi.BaseURL, "ODDSBOARD_KALSHI_BASE_URL")
	setDuration(&cfg.Kalshi.Timeout, "ODDSBOARD_KALSHI_TIMEOUT")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ODDSBOARD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ODDSBOARD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ODDSBOARD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ODDSBOARD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ODDSBOARD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ODDSBOARD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ODDSBOARD_REDIS_TLS_ENABLED")

	// ── Overlay ──
	setDuration(&cfg.Overlay.PollInterval, "ODDSBOARD_OVERLAY_POLL_INTERVAL")
	setDuration(&cfg.Overlay.HistoryWindow, "ODDSBOARD_OVERLAY_HISTORY_WINDOW")
	setInt(&cfg.Overlay.MaxPoints, "ODDSBOARD_OVERLAY_MAX_POINTS")
	setDuration(&cfg.Overlay.PurgeInterval, "ODDSBOARD_OVERLAY_PURGE_INTERVAL")
	setDuration(&cfg.Overlay.IdleTTL, "ODDSBOARD_OVERLAY_IDLE_TTL")

	// ── Trending ──
	setStringSlice(&cfg.Trending.FeaturedEvents, "ODDSBOARD_TRENDING_FEATURED_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "ODDSBOARD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
