/**
 * Configuration for the ocrsum service
 *
 * Loads configuration from environment variables (optionally seeded from .env)
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSummarizationURL is the hosted BART summarization model.
const DefaultSummarizationURL = "https://api-inference.huggingface.co/models/facebook/bart-large-cnn"

// Config holds service configuration
type Config struct {
	// HTTP server
	HTTPAddr string

	// Summarization upstream. An empty token is allowed at startup; the
	// summarize endpoint reports it per request.
	HuggingFaceToken  string
	HuggingFaceURL    string
	UpstreamTimeout   time.Duration
	SummarizeTimeout  time.Duration
	MaxWarmupWait     time.Duration
	DefaultWarmupSecs float64

	// OCR
	MaxImageSize   int64
	TessdataPrefix string

	// History of recent results
	HistoryBackend string
	HistoryLimit   int
	HistoryTTL     time.Duration
	RedisURL       string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the given .env files (missing files are ignored) and then
// builds the configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return LoadConfig()
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:          getEnvOrDefault("HTTP_ADDR", ":8080"),
		HuggingFaceToken:  os.Getenv("HUGGINGFACE_API_TOKEN"),
		HuggingFaceURL:    getEnvOrDefault("HUGGINGFACE_API_URL", DefaultSummarizationURL),
		UpstreamTimeout:   getEnvAsMillisOrDefault("UPSTREAM_TIMEOUT", 60*time.Second),
		SummarizeTimeout:  getEnvAsMillisOrDefault("SUMMARIZE_TIMEOUT", 3*time.Minute),
		MaxWarmupWait:     getEnvAsMillisOrDefault("MAX_WARMUP_WAIT", 60*time.Second),
		DefaultWarmupSecs: getEnvAsFloatOrDefault("DEFAULT_WARMUP_SECONDS", 20),
		MaxImageSize:      getEnvAsInt64OrDefault("MAX_IMAGE_SIZE", 20<<20), // 20MB
		TessdataPrefix:    getEnvOrDefault("TESSDATA_PREFIX", ""),
		HistoryBackend:    strings.ToLower(getEnvOrDefault("HISTORY_BACKEND", "memory")),
		HistoryLimit:      getEnvAsIntOrDefault("HISTORY_LIMIT", 10),
		HistoryTTL:        getEnvAsMillisOrDefault("HISTORY_TTL", 24*time.Hour),
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "text"),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}

	if c.HuggingFaceURL == "" {
		return fmt.Errorf("HUGGINGFACE_API_URL is required")
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %v", c.UpstreamTimeout)
	}

	// The deadline must leave room for two round trips around the warm-up wait.
	if c.SummarizeTimeout <= c.MaxWarmupWait {
		return fmt.Errorf("SUMMARIZE_TIMEOUT (%v) must exceed MAX_WARMUP_WAIT (%v)", c.SummarizeTimeout, c.MaxWarmupWait)
	}

	if c.DefaultWarmupSecs <= 0 {
		return fmt.Errorf("DEFAULT_WARMUP_SECONDS must be positive, got %v", c.DefaultWarmupSecs)
	}

	if c.MaxImageSize < 1024 || c.MaxImageSize > 200<<20 { // 1KB to 200MB
		return fmt.Errorf("MAX_IMAGE_SIZE must be between 1KB and 200MB, got %d", c.MaxImageSize)
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > 1000 {
		return fmt.Errorf("HISTORY_LIMIT must be between 1 and 1000, got %d", c.HistoryLimit)
	}

	switch c.HistoryBackend {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when HISTORY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be memory or redis, got %q", c.HistoryBackend)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsMillisOrDefault reads a millisecond count, as the rest of the
// stack configures timeouts in ms.
func getEnvAsMillisOrDefault(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvAsInt64OrDefault(key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
