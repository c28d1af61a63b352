// Package config validates and holds the process's environment configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration.
type Config struct {
	// Required variables
	Port string

	// Optional variables with defaults
	GoEnv    string
	LogLevel string

	// Song cache / static file serving
	SongsCacheDir string

	// Catalog adapter (C5)
	CatalogInstances     []string // round-robin pool of upstream catalog hosts
	CatalogRefreshPeriod time.Duration

	// Redis (optional; catalog suggestion/metadata cache and rate-limiter store — see DESIGN.md)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	AllowedOrigins string

	// Round timing (§4.2, §4.4) — StartCountdown is shorter in debug builds
	StartCountdown time.Duration
	RoundDeadline  time.Duration

	// Rate limits (Defaults: M = Minute, H = Hour)
	RateLimitWsConnect string
	RateLimitCommand   string
}

// ValidateEnv validates all required environment variables and returns a Config object.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errors = append(errors, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: SONGS_CACHE_DIR (defaults to "./songs_cache")
	cfg.SongsCacheDir = getEnvOrDefault("SONGS_CACHE_DIR", "./songs_cache")

	// Optional: CATALOG_INSTANCES (comma-separated host list)
	instances := getEnvOrDefault("CATALOG_INSTANCES", "https://invidious.local")
	cfg.CatalogInstances = splitNonEmpty(instances, ",")
	if len(cfg.CatalogInstances) == 0 {
		errors = append(errors, "CATALOG_INSTANCES must contain at least one instance")
	}

	refreshHours := getEnvOrDefault("CATALOG_REFRESH_HOURS", "8")
	if hours, err := strconv.Atoi(refreshHours); err != nil || hours < 1 {
		errors = append(errors, fmt.Sprintf("CATALOG_REFRESH_HOURS must be a positive integer (got '%s')", refreshHours))
	} else {
		cfg.CatalogRefreshPeriod = time.Duration(hours) * time.Hour
	}

	// Conditional: REDIS_ADDR (required if REDIS_ENABLED=true)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errors = append(errors, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// §4.3 ready(): 12s release / 2s debug
	if cfg.GoEnv == "production" {
		cfg.StartCountdown = 12 * time.Second
	} else {
		cfg.StartCountdown = 2 * time.Second
	}

	// §4.4: hard 180s guess-collection deadline
	cfg.RoundDeadline = 180 * time.Second

	cfg.RateLimitWsConnect = getEnvOrDefault("RATE_LIMIT_WS_CONNECT", "20-M")
	cfg.RateLimitCommand = getEnvOrDefault("RATE_LIMIT_COMMAND", "120-M")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port".
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"songs_cache_dir", cfg.SongsCacheDir,
		"catalog_instances", len(cfg.CatalogInstances),
		"redis_enabled", cfg.RedisEnabled,
		"start_countdown", cfg.StartCountdown,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// splitNonEmpty splits s on sep, trimming whitespace and dropping empty fields.
func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
