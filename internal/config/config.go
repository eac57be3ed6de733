package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	DBPath string

	// Auth
	AuthDelay    time.Duration // simulated latency of login and registration
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Resilience
	StoreMaxRetries      int
	StoreInitialBackoff  time.Duration
	MaxConcurrentUploads int

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool

	// Document
	BrandWatermark string
	PrintCacheTTL  time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "data/invoicer.db")
	v.SetDefault("AUTH_DELAY", 800*time.Millisecond)
	v.SetDefault("JWT_SECRET", "invoicer-default-dev-secret-change-me")
	v.SetDefault("JWT_ACCESS_TTL", 12*time.Hour)
	v.SetDefault("STORE_MAX_RETRIES", 2)
	v.SetDefault("STORE_INITIAL_BACKOFF", 20*time.Millisecond)
	v.SetDefault("MAX_CONCURRENT_UPLOADS", 4)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("BRAND_WATERMARK", "DTECH")
	v.SetDefault("PRINT_CACHE_TTL", time.Minute)

	return &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DBPath: v.GetString("DB_PATH"),

		AuthDelay:    v.GetDuration("AUTH_DELAY"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTAccessTTL: v.GetDuration("JWT_ACCESS_TTL"),

		StoreMaxRetries:      v.GetInt("STORE_MAX_RETRIES"),
		StoreInitialBackoff:  v.GetDuration("STORE_INITIAL_BACKOFF"),
		MaxConcurrentUploads: v.GetInt("MAX_CONCURRENT_UPLOADS"),

		OTLPEndpoint:   v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingEnabled: v.GetBool("TRACING_ENABLED"),

		BrandWatermark: v.GetString("BRAND_WATERMARK"),
		PrintCacheTTL:  v.GetDuration("PRINT_CACHE_TTL"),
	}
}
