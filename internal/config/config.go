// Package config provides configuration for the test harness server.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the harness configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Model API
	APIKey          string
	LLMBaseURL      string
	Model           string
	SearchModel     string
	Temperature     float64
	LLMTimeout      time.Duration
	LLMMaxRetries   int
	LLMRetryBackoff time.Duration
	Mode            string

	// Storage
	DatabaseURL string

	// Prompts and policy
	PromptsFile string
	PolicyFile  string

	// Run limits
	MaxTasks           int
	ResearchMaxResults int

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogDir string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	return &Config{
		HTTPPort:           getEnvInt("PORT", 17000),
		APIKey:             getEnv("XAI_API_KEY", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.x.ai"),
		Model:              getEnv("LLM_MODEL", "grok-4-fast-reasoning"),
		SearchModel:        getEnv("LLM_SEARCH_MODEL", "grok-4-fast-reasoning"),
		Temperature:        getEnvFloat("LLM_TEMPERATURE", 0.7),
		LLMTimeout:         time.Duration(getEnvInt("LLM_TIMEOUT_MS", 120000)) * time.Millisecond,
		LLMMaxRetries:      getEnvInt("LLM_MAX_RETRIES", 2),
		LLMRetryBackoff:    time.Duration(getEnvInt("LLM_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		Mode:               getEnv("HARNESS_MODE", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "file:test_sessions.db?cache=shared&mode=rwc"),
		PromptsFile:        getEnv("PROMPTS_FILE", "lawyer_prompts.json"),
		PolicyFile:         getEnv("POLICY_FILE", ""),
		MaxTasks:           getEnvInt("MAX_TASKS", 25),
		ResearchMaxResults: getEnvInt("RESEARCH_MAX_RESULTS", 20),
		PingInterval:       time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:       time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:        time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:     int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 1048576)),
		LogDir:             getEnv("LOG_DIR", "logs"),
	}
}

// MaskedAPIKey returns the API key with everything but its edges hidden.
func (c *Config) MaskedAPIKey() string {
	if len(c.APIKey) <= 14 {
		return "****"
	}
	return c.APIKey[:10] + "..." + c.APIKey[len(c.APIKey)-4:]
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
