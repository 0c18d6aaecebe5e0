package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// Database
	DatabaseURL string

	// Redis-backed session storage; empty keeps sessions in memory
	RedisURL string

	// Search backend
	SearchAPIKey   string // env: SEARCH_API_KEY (required)
	SearchEngineID string // env: SEARCH_ENGINE_ID (required)
	SearchEndpoint string // env: SEARCH_ENDPOINT, default: Google Custom Search JSON API

	// Throttling between search requests and between keywords in a batch
	SearchPageInterval time.Duration
	KeywordInterval    time.Duration
	CheckTimeout       time.Duration // upper bound for one keyword's full pagination

	// Background rank checker
	RankCheckEnabled  bool
	RankCheckInterval time.Duration
	RankCheckMaxAge   time.Duration

	// OIDC (OAuth login); disabled when OIDCIssuer is empty
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret string // Used for signing cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Logging
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	LogFile   string // optional append-only log file
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:         getEnv("ENV", "development"),
		ServerAddr:  getEnv("SERVER_ADDR", ":3000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/rankwatch?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", ""),

		SearchAPIKey:   getEnv("SEARCH_API_KEY", ""),
		SearchEngineID: getEnv("SEARCH_ENGINE_ID", ""),
		SearchEndpoint: getEnv("SEARCH_ENDPOINT", "https://www.googleapis.com/customsearch/v1"),

		SearchPageInterval: getDuration("SEARCH_PAGE_INTERVAL", 500*time.Millisecond),
		KeywordInterval:    getDuration("KEYWORD_INTERVAL", 2*time.Second),
		CheckTimeout:       getDuration("CHECK_TIMEOUT", 60*time.Second),

		RankCheckEnabled:  getEnv("RANK_CHECK_ENABLED", "") != "",
		RankCheckInterval: getDuration("RANK_CHECK_INTERVAL", 24*time.Hour),
		RankCheckMaxAge:   getDuration("RANK_CHECK_MAX_AGE", 24*time.Hour),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/oauth/callback"),

		SessionSecret: getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:   getEnv("CORS_ORIGINS", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration parses a Go duration ("500ms", "24h") or a number of seconds.
// Zero and negative values keep the fallback.
func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsSearchConfigured returns true if both search secrets are present.
func (c *Config) IsSearchConfigured() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

// IsOAuthEnabled returns true if an OIDC issuer is configured.
func (c *Config) IsOAuthEnabled() bool {
	return c.OIDCIssuer != ""
}
