package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"taskchat/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port         string
	DatabasePath string // SQLite database file path
	RedisURL     string // optional; empty keeps rate limiting in-memory
	MongoURI     string // optional; empty disables conversation archival
	JWTSecret    string

	// ProvidersFile points at the providers.json describing inference
	// backends for intent classification. Empty or missing file means
	// the offline rules classifier is used.
	ProvidersFile string

	// Per-owner chat rate limit (fixed window).
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Conversations soft-deleted longer than this are archived to
	// cold storage.
	ArchiveRetention time.Duration
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3001"),
		DatabasePath: getEnv("DATABASE_PATH", "taskchat.db"),
		RedisURL:     getEnv("REDIS_URL", ""),
		MongoURI:     getEnv("MONGODB_URI", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		ProvidersFile: getEnv("PROVIDERS_FILE", "providers.json"),

		RateLimitMax:    getIntEnv("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getDurationEnv("RATE_LIMIT_WINDOW", time.Hour),

		ArchiveRetention: getDurationEnv("ARCHIVE_RETENTION", 30*24*time.Hour),
	}
}

// LoadProviders loads providers configuration from JSON file
func LoadProviders(filePath string) (*models.ProvidersConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var config models.ProvidersConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse providers JSON: %w", err)
	}

	return &config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
