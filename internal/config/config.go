// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// server mode, provider limits, rate-limit plans, and timeouts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultProviderBaseURL is the provider messaging API endpoint.
const DefaultProviderBaseURL = "https://api.chat-provider.example"

// Config holds all application configuration
type Config struct {
	// Channel Configuration
	ChannelID       string
	ChannelSecret   string
	ProviderBaseURL string

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string // empty = no auth

	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir           string        // directory for the SQLite delivery log
	DeliveryRetention time.Duration // how long delivery rows are kept (default: 90 days)

	// Error tracking
	SentryEnabled     bool
	SentryDSN         string
	SentryEnvironment string
	SentrySampleRate  float64

	// Log shipping
	BetterStackToken    string
	BetterStackEndpoint string

	// Gateway Configuration (embedded)
	Gateway GatewayConfig
}

// SQLitePath returns the delivery log database path.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "deliveries.db")
}

// Load reads configuration from environment variables.
// It attempts to load a .env file first, then reads from env vars.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		ChannelID:       getEnv(EnvChannelID, ""),
		ChannelSecret:   getEnv(EnvChannelSecret, ""),
		ProviderBaseURL: getEnv(EnvProviderBaseURL, DefaultProviderBaseURL),

		MetricsAuthEnabled: getEnvBool(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),

		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, 30*time.Second),

		DataDir:           getEnv(EnvDataDir, "./data"),
		DeliveryRetention: getEnvDuration(EnvDeliveryRetention, 90*24*time.Hour),

		SentryEnabled:     getEnvBool(EnvSentryEnabled, false),
		SentryDSN:         getEnv(EnvSentryDSN, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getEnvFloat(EnvSentrySampleRate, 1.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		Gateway: loadGatewayConfig(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChannelSecret == "" {
		return fmt.Errorf("%s is required", EnvChannelSecret)
	}
	if c.ChannelID == "" {
		return fmt.Errorf("%s is required", EnvChannelID)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if c.SentryEnabled && c.SentryDSN == "" {
		return errors.New("sentry enabled but DSN is empty")
	}
	if !strings.HasPrefix(c.ProviderBaseURL, "http://") && !strings.HasPrefix(c.ProviderBaseURL, "https://") {
		return fmt.Errorf("invalid provider base URL %q", c.ProviderBaseURL)
	}
	return c.Gateway.validate()
}

// getEnv reads a string env var with a fallback default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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
