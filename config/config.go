// Package config handles loading and managing application configuration.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// ShopStack commerce platform configuration
	Commerce CommerceConfig

	// NovaPay gateway configuration
	Gateway GatewayConfig

	// Correlation record store configuration
	Redis RedisConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// CommerceConfig holds ShopStack payment/cart API configuration.
type CommerceConfig struct {
	BaseURL string
	APIKey  string
}

// GatewayConfig holds NovaPay API and webhook configuration.
type GatewayConfig struct {
	BaseURL   string
	AccessKey string

	// PaymentAccessKey is the shared secret used for webhook checksum
	// verification. When empty, checksum validation is skipped.
	PaymentAccessKey string

	// WebhookHost is the published hostname NovaPay sends webhooks from.
	WebhookHost string

	// WebhookTestMode disables source-IP enforcement. Must stay off in
	// production.
	WebhookTestMode bool
}

// RedisConfig holds the correlation store connection settings.
type RedisConfig struct {
	URL string
}

// Load reads configuration from environment variables.
// Returns a Config struct with all settings populated.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Commerce: CommerceConfig{
			BaseURL: getEnv("SHOPSTACK_API_URL", "http://localhost:8000"),
			APIKey:  getEnv("SHOPSTACK_API_KEY", ""),
		},
		Gateway: GatewayConfig{
			BaseURL:          getEnv("NOVAPAY_API_URL", "https://api.novapay.com"),
			AccessKey:        getEnv("NOVAPAY_ACCESS_KEY", ""),
			PaymentAccessKey: getEnv("NOVAPAY_PAYMENT_ACCESS_KEY", ""),
			WebhookHost:      getEnv("NOVAPAY_WEBHOOK_HOST", "webhooks.novapay.com"),
			WebhookTestMode:  getEnvBool("WEBHOOK_TEST_MODE", false),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
	}
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer with a fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean with a fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
