package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port      int
	Env       string
	APIPrefix string

	// CORS
	AllowedOrigins []string

	// Upstream providers
	HTTPTimeout         time.Duration
	WargamingRegion     string
	WargamingAppID      string
	TomatoBaseURL       string
	TomatoRatePerSecond float64

	// Lookup cache (optional)
	RedisURL        string
	AccountCacheTTL time.Duration
	StatsCacheTTL   time.Duration

	// Scoring artifacts
	ModelPath    string
	ScalerPath   string
	MapIndexPath string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnvInt("PORT", 8000),
		Env:       getEnv("ENV", "development"),
		APIPrefix: strings.TrimRight(getEnv("API_PREFIX", "/api"), "/"),

		HTTPTimeout:         getEnvDuration("HTTP_TIMEOUT", 20*time.Second),
		WargamingRegion:     strings.ToLower(getEnv("WARGAMING_REGION", "eu")),
		TomatoBaseURL:       strings.TrimRight(getEnv("TOMATO_API_BASE_URL", "https://api.tomato.gg/api"), "/"),
		TomatoRatePerSecond: getEnvFloat("TOMATO_RATE_PER_SECOND", 20),

		RedisURL:        getEnv("REDIS_URL", ""),
		AccountCacheTTL: getEnvDuration("ACCOUNT_CACHE_TTL", 24*time.Hour),
		StatsCacheTTL:   getEnvDuration("STATS_CACHE_TTL", 10*time.Minute),

		ModelPath:    getEnv("MODEL_PATH", "model/wot_model.safetensors"),
		ScalerPath:   getEnv("SCALER_PATH", "model/scaler.json"),
		MapIndexPath: getEnv("MAP_INDEX_PATH", "model/map_index.json"),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// The application id was historically exported as WARGAMING_API_KEY.
	cfg.WargamingAppID = getEnv("WARGAMING_APP_ID", os.Getenv("WARGAMING_API_KEY"))
	if cfg.WargamingAppID == "" {
		return nil, fmt.Errorf("missing required environment variable: WARGAMING_APP_ID")
	}

	if cfg.TomatoRatePerSecond <= 0 {
		return nil, fmt.Errorf("TOMATO_RATE_PER_SECOND must be positive, got %v", cfg.TomatoRatePerSecond)
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
