package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dtechsoftwares/Invoice-Generator-Dtech/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "AUTH_DELAY", "JWT_ACCESS_TTL", "BRAND_WATERMARK", "TRACING_ENABLED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := config.Load()
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.AuthDelay != 800*time.Millisecond {
		t.Errorf("expected 800ms auth delay, got %v", cfg.AuthDelay)
	}
	if cfg.JWTAccessTTL != 12*time.Hour {
		t.Errorf("expected 12h token ttl, got %v", cfg.JWTAccessTTL)
	}
	if cfg.BrandWatermark != "DTECH" {
		t.Errorf("expected DTECH watermark, got %q", cfg.BrandWatermark)
	}
	if cfg.TracingEnabled {
		t.Error("tracing should be off by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_DELAY", "0s")
	t.Setenv("STORE_MAX_RETRIES", "5")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := config.Load()
	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.AuthDelay != 0 {
		t.Errorf("expected zero delay, got %v", cfg.AuthDelay)
	}
	if cfg.StoreMaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.StoreMaxRetries)
	}
	if !cfg.TracingEnabled {
		t.Error("expected tracing enabled")
	}
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "LOG_LEVEL=debug\n# comment\nBRAND_WATERMARK=\"ACME\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BRAND_WATERMARK", "")
	os.Unsetenv("BRAND_WATERMARK")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := config.Load()
	if cfg.LogLevel != "warn" {
		t.Errorf("existing env must win, got %q", cfg.LogLevel)
	}
	if cfg.BrandWatermark != "ACME" {
		t.Errorf("expected value from file, got %q", cfg.BrandWatermark)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
