// Package config provides configuration management for tickerbrief.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// LLM settings
	LLMAPIKey      string
	LLMEndpoint    string
	LLMModel       string
	EmbeddingModel string
	Temperature    float64
	LLMTimeout     time.Duration
	LLMMaxAttempts int
	LLMBackoffBase time.Duration

	// Reflection settings
	FacetWorkers int

	// Alpha Vantage settings
	AlphaVantageAPIKey string

	// MongoDB settings
	MongoURI string
	MongoDB  string

	Debug bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		LLMAPIKey:      getEnv("LLM_API_KEY", ""),
		LLMEndpoint:    getEnv("LLM_ENDPOINT", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		Temperature:    getEnvFloat("LLM_TEMPERATURE", 0.3),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 90*time.Second),
		LLMMaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 3),
		LLMBackoffBase: getEnvDuration("LLM_BACKOFF_BASE", 2*time.Second),

		FacetWorkers: getEnvInt("FACET_WORKERS", 3),

		AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "tickerbrief"),

		Debug: getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate fails fast when a required field is absent.
func (c *Config) Validate() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.AlphaVantageAPIKey == "" {
		log.Warn().Msg("ALPHA_VANTAGE_API_KEY not set, news/price fetching will fail")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("LLM_TEMPERATURE must be in [0, 1], got %v", c.Temperature)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
