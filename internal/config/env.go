package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that fill empty secret fields.
const (
	EnvBotToken     = "BOT_TOKEN"
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvRedisURL     = "REDIS_URL"
	EnvProfilesDSN  = "PROFILES_DSN"
	EnvDestChatID   = "DESTINATION_CHAT_ID"
	EnvDestThreadID = "DESTINATION_THREAD_ID"
)

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv fills empty secret fields from lookup (os.LookupEnv when nil).
// Values present in the file are kept.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	fill(&c.Telegram.Token, EnvBotToken)
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "gemini", "genai":
		fill(&c.LLM.APIKey, EnvGeminiKey)
	default:
		fill(&c.LLM.APIKey, EnvOpenAIKey)
	}
	fill(&c.Dedup.RedisURL, EnvRedisURL)
	fill(&c.Profiles.DSN, EnvProfilesDSN)

	if c.Destination.ChatID == 0 {
		if v, ok := lookup(EnvDestChatID); ok {
			c.Destination.ChatID, _ = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		}
	}
	if c.Destination.ThreadID == 0 {
		if v, ok := lookup(EnvDestThreadID); ok {
			c.Destination.ThreadID, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
}
