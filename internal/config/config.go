// Package config loads bot configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the bot process.
type Config struct {
	// Chat gateway.
	GatewayWSURL       string
	GatewayTokenSecret string
	BotID              string
	BotPrefix          string

	// Text generation.
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Optional infrastructure. Empty disables the feature.
	RedisURL    string
	DatabaseURL string

	MeetingWindow time.Duration
	LogLevel      string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing file is fine

	cfg := &Config{
		GatewayWSURL:       os.Getenv("GATEWAY_WS_URL"),
		GatewayTokenSecret: os.Getenv("GATEWAY_TOKEN_SECRET"),
		BotID:              getenvDefault("BOT_ID", "imposterbot"),
		BotPrefix:          getenvDefault("BOT_PREFIX", "!imposter"),
		LLMBaseURL:         os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:          os.Getenv("LLM_API_KEY"),
		LLMModel:           getenvDefault("LLM_MODEL", "gpt-4o-mini"),
		RedisURL:           os.Getenv("REDIS_URL"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MeetingWindow:      60 * time.Second,
		LogLevel:           getenvDefault("LOG_LEVEL", "info"),
	}

	if cfg.GatewayWSURL == "" {
		return nil, fmt.Errorf("GATEWAY_WS_URL is required")
	}
	if cfg.LLMBaseURL == "" {
		return nil, fmt.Errorf("LLM_BASE_URL is required")
	}

	if raw := os.Getenv("MEETING_WINDOW_SEC"); raw != "" {
		sec, err := strconv.Atoi(raw)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid MEETING_WINDOW_SEC %q", raw)
		}
		cfg.MeetingWindow = time.Duration(sec) * time.Second
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
