package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// LLM backend
	LLMProvider     string // "openai", "anthropic" or "ollama"
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Audio transcription (OpenAI-compatible endpoint)
	TranscribeURL   string
	TranscribeModel string
	TranscribeKey   string

	// Identity webhook
	ClerkWebhookSecret string

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "./data/parrot.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
		LLMModel:        getEnv("LLM_MODEL", "llama3"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		TranscribeURL:   getEnv("TRANSCRIBE_URL", "https://api.openai.com/v1/audio/transcriptions"),
		TranscribeModel: getEnv("TRANSCRIBE_MODEL", "whisper-1"),
		TranscribeKey:   os.Getenv("TRANSCRIBE_API_KEY"),

		ClerkWebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),
	}
	if cfg.TranscribeKey == "" {
		cfg.TranscribeKey = cfg.OpenAIAPIKey
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	// In production, require the backing services and the webhook secret
	if cfg.Env == "production" {
		if cfg.DatabaseURL == "" {
			panic("DATABASE_URL is required in production")
		}
		if cfg.RedisURL == "" {
			panic("REDIS_URL is required in production")
		}
		if cfg.ClerkWebhookSecret == "" {
			panic("CLERK_WEBHOOK_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
