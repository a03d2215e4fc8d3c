package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	BaseURL string // Required: backend API base URL

	Platform       string        // Optional: value for X-Client-Platform (default: cli)
	RequestTimeout time.Duration // Optional: per-request timeout (default: 15s)
	SecretsFile    string        // Optional: path to SQLite secrets file (default: ./secrets.db)
	MasterKeyPath  string        // Optional: path to master encryption key file
	LoginInterval  time.Duration // Optional: minimum interval between login attempts (default: 12s)
	LoginBurst     int           // Optional: login attempt burst size (default: 5)

	GoogleClientID     string // Optional: enables the Google sign-in flow
	GoogleClientSecret string // Optional
	GoogleRedirectURL  string // Optional

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	cfg := Config{
		BaseURL:        os.Getenv("AUTHKIT_BASE_URL"),
		Platform:       getEnvOrDefault("AUTHKIT_PLATFORM", "cli"),
		RequestTimeout: getEnvDurationOrDefault("AUTHKIT_REQUEST_TIMEOUT", 15*time.Second),
		SecretsFile:    getEnvOrDefault("AUTHKIT_SECRETS_FILE", "secrets.db"),
		MasterKeyPath:  os.Getenv("AUTHKIT_MASTER_KEY_PATH"), // Optional
		LoginInterval:  getEnvDurationOrDefault("AUTHKIT_LOGIN_INTERVAL", 12*time.Second),
		LoginBurst:     getEnvIntOrDefault("AUTHKIT_LOGIN_BURST", 5),

		GoogleClientID:     os.Getenv("AUTHKIT_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("AUTHKIT_GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("AUTHKIT_GOOGLE_REDIRECT_URL"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
