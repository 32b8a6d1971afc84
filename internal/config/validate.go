package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a config after ApplyDefaults and ApplyEnv. All problems are
// reported together.
func Validate(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if strings.TrimSpace(c.Telegram.Token) == "" {
		add("telegram.token: empty (set it or %s)", EnvBotToken)
	}
	if len(c.Sources) == 0 {
		add("sources: at least one source is required")
	}
	seen := map[string]bool{}
	for i, s := range c.Sources {
		if s.ChatID == 0 {
			add("sources[%d].chat_id: required", i)
		}
		key := fmt.Sprint(s.ChatID, "/*")
		if s.ThreadID != nil {
			key = fmt.Sprint(s.ChatID, "/", *s.ThreadID)
		}
		if seen[key] {
			add("sources[%d]: duplicate of an earlier source", i)
		}
		seen[key] = true
	}
	if c.Broadcast.Enabled && c.Destination.ChatID == 0 {
		add("destination.chat_id: required when broadcast is enabled")
	}

	switch c.Dedup.Driver {
	case "file", "sqlite":
		if strings.TrimSpace(c.Dedup.Path) == "" {
			add("dedup.path: required for driver %q", c.Dedup.Driver)
		}
	case "redis":
		if strings.TrimSpace(c.Dedup.RedisURL) == "" {
			add("dedup.redis_url: required for driver redis (or %s)", EnvRedisURL)
		}
	case "none":
	default:
		add("dedup.driver: unknown %q", c.Dedup.Driver)
	}
	if t := c.Dedup.SimilarityThreshold; t <= 0 || t > 1 {
		add("dedup.similarity_threshold: must be in (0, 1], got %v", t)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "gemini", "genai":
	default:
		add("llm.provider: unknown %q", c.LLM.Provider)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		add("llm.api_key: empty")
	}

	if c.Personal.Enabled {
		switch c.Profiles.Driver {
		case "sqlite", "sqlite3", "postgres", "postgresql", "json", "file":
		default:
			add("profiles.driver: unknown %q", c.Profiles.Driver)
		}
		if strings.TrimSpace(c.Profiles.DSN) == "" {
			add("profiles.dsn: required when personal delivery is enabled (or %s)", EnvProfilesDSN)
		}
	}

	if c.Media.SweepEnabled() {
		if _, err := scheduleParser.Parse(c.Media.SweepSchedule); err != nil {
			add("media.sweep_schedule: %v", err)
		}
	}

	durations := map[string]string{
		"telegram.poll_timeout": c.Telegram.PollTimeout,
		"telegram.call_timeout": c.Telegram.CallTimeout,
		"telegram.album_window": c.Telegram.AlbumWindow,
		"dedup.busy_timeout":    c.Dedup.BusyTimeout,
		"dedup.lock_timeout":    c.Dedup.LockTimeout,
		"llm.timeout":           c.LLM.Timeout,
		"media.sweep_max_age":   c.Media.SweepMaxAge,
		"ocr.timeout":           c.OCR.Timeout,
		"pipeline.task_timeout": c.Pipeline.TaskTimeout,
	}
	for path, raw := range durations {
		if _, err := ParseDuration(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
