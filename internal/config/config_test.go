package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// setupTestEnv sets up environment variables for testing
func setupTestEnv(t *testing.T) func() {
	keys := []string{
		"PORT", "SONGS_CACHE_DIR", "CATALOG_INSTANCES", "CATALOG_REFRESH_HOURS",
		"REDIS_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD", "GO_ENV", "LOG_LEVEL",
		"ALLOWED_ORIGINS", "RATE_LIMIT_WS_CONNECT", "RATE_LIMIT_COMMAND",
	}

	origVars := make(map[string]string, len(keys))
	for _, k := range keys {
		origVars[k] = os.Getenv(k)
		os.Unsetenv(k)
	}

	return func() {
		for key, val := range origVars {
			if val != "" {
				os.Setenv(key, val)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

func TestValidateEnv_ValidConfiguration(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("REDIS_ENABLED", "false")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected PORT to be '8080', got '%s'", cfg.Port)
	}
	if cfg.GoEnv != "production" {
		t.Errorf("Expected GO_ENV to default to 'production', got '%s'", cfg.GoEnv)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LOG_LEVEL to default to 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.SongsCacheDir != "./songs_cache" {
		t.Errorf("Expected SONGS_CACHE_DIR to default to './songs_cache', got '%s'", cfg.SongsCacheDir)
	}
	if len(cfg.CatalogInstances) != 1 || cfg.CatalogInstances[0] != "https://invidious.local" {
		t.Errorf("Expected default CATALOG_INSTANCES, got %v", cfg.CatalogInstances)
	}
	if cfg.CatalogRefreshPeriod != 8*time.Hour {
		t.Errorf("Expected CATALOG_REFRESH_HOURS to default to 8h, got %v", cfg.CatalogRefreshPeriod)
	}
	if cfg.StartCountdown != 12*time.Second {
		t.Errorf("Expected production StartCountdown to be 12s, got %v", cfg.StartCountdown)
	}
	if cfg.RoundDeadline != 180*time.Second {
		t.Errorf("Expected RoundDeadline to be 180s, got %v", cfg.RoundDeadline)
	}
}

func TestValidateEnv_MissingPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for missing PORT, got nil")
	}
	if !strings.Contains(err.Error(), "PORT is required") {
		t.Errorf("Expected error message about PORT, got: %v", err)
	}
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "99999")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for invalid PORT, got nil")
	}
	if !strings.Contains(err.Error(), "PORT must be a valid port number") {
		t.Errorf("Expected error message about invalid PORT, got: %v", err)
	}
}

func TestValidateEnv_InvalidRedisAddr(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("REDIS_ENABLED", "true")
	os.Setenv("REDIS_ADDR", "invalid-format")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for invalid REDIS_ADDR, got nil")
	}
	if !strings.Contains(err.Error(), "REDIS_ADDR must be in format 'host:port'") {
		t.Errorf("Expected error message about REDIS_ADDR format, got: %v", err)
	}
}

func TestValidateEnv_RedisDefaultAddr(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("REDIS_ENABLED", "true")
	// Don't set REDIS_ADDR

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR to default to 'localhost:6379', got '%s'", cfg.RedisAddr)
	}
}

func TestValidateEnv_InvalidCatalogRefreshHours(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CATALOG_REFRESH_HOURS", "not-a-number")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("Expected error for invalid CATALOG_REFRESH_HOURS, got nil")
	}
	if !strings.Contains(err.Error(), "CATALOG_REFRESH_HOURS must be a positive integer") {
		t.Errorf("Expected error message about CATALOG_REFRESH_HOURS, got: %v", err)
	}
}

func TestValidateEnv_CatalogInstancesCSV(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("CATALOG_INSTANCES", "https://a.example, https://b.example ,,https://c.example")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	want := []string{"https://a.example", "https://b.example", "https://c.example"}
	if len(cfg.CatalogInstances) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cfg.CatalogInstances)
	}
	for i, v := range want {
		if cfg.CatalogInstances[i] != v {
			t.Errorf("Expected CatalogInstances[%d] = %q, got %q", i, v, cfg.CatalogInstances[i])
		}
	}
}

func TestValidateEnv_DebugStartCountdown(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")
	os.Setenv("GO_ENV", "development")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.StartCountdown != 2*time.Second {
		t.Errorf("Expected development StartCountdown to be 2s, got %v", cfg.StartCountdown)
	}
}

func TestValidateEnv_OptionalDefaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.RateLimitWsConnect != "20-M" {
		t.Errorf("Expected RATE_LIMIT_WS_CONNECT to default to '20-M', got '%s'", cfg.RateLimitWsConnect)
	}
	if cfg.RateLimitCommand != "120-M" {
		t.Errorf("Expected RATE_LIMIT_COMMAND to default to '120-M', got '%s'", cfg.RateLimitCommand)
	}
}

func TestIsValidHostPort(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		expected bool
	}{
		{"Valid localhost", "localhost:8080", true},
		{"Valid IP", "127.0.0.1:3000", true},
		{"Valid hostname", "example.com:443", true},
		{"Missing port", "localhost", false},
		{"Missing host", ":8080", false},
		{"Invalid port", "localhost:99999", false},
		{"Non-numeric port", "localhost:abc", false},
		{"Multiple colons", "localhost:8080:9090", false},
		{"Empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidHostPort(tt.addr)
			if result != tt.expected {
				t.Errorf("isValidHostPort('%s') = %v, expected %v", tt.addr, result, tt.expected)
			}
		})
	}
}

func TestSplitNonEmpty(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"simple", "a,b,c", []string{"a", "b", "c"}},
		{"whitespace", " a , b ,c", []string{"a", "b", "c"}},
		{"empty fields dropped", "a,,b,", []string{"a", "b"}},
		{"all empty", ",, ,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitNonEmpty(tt.input, ",")
			if len(result) != len(tt.expected) {
				t.Fatalf("splitNonEmpty(%q) = %v, expected %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitNonEmpty(%q)[%d] = %q, expected %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}
