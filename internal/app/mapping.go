package app

import (
	"time"

	"castbot/internal/config"
	"castbot/internal/dedup"
	"castbot/internal/distribute"
	"castbot/internal/format"
	"castbot/internal/ingest"
	"castbot/internal/llm"
	"castbot/internal/media"
	"castbot/internal/ocr"
	"castbot/internal/profiles"
	"castbot/internal/storage"
	"castbot/internal/task/engine"
	kit "castbot/internal/transport"
	telegram "castbot/internal/transport/telegram/adapter"
	logx "castbot/pkg/logx"
)

// The map* helpers translate the validated file config into component
// configs. Durations were checked by config.Validate, so parse failures fall
// back to defaults here.

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Chat: logx.ChatConfig{
			Enabled:    l.Telegram.Enabled && l.Telegram.ChatID != 0,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func logTarget(cfg *config.Config) kit.ChatTarget {
	return kit.ChatTarget{ChatID: cfg.Logging.Telegram.ChatID, ThreadID: cfg.Logging.Telegram.ThreadID}
}

func mapAdapterConfig(cfg *config.Config) telegram.Config {
	t := cfg.Telegram
	return telegram.Config{
		Token:       t.Token,
		APIURL:      t.APIURL,
		PollTimeout: config.Duration(t.PollTimeout, 10*time.Second),
		CallTimeout: config.Duration(t.CallTimeout, 30*time.Second),
		AlbumWindow: config.Duration(t.AlbumWindow, 1500*time.Millisecond),
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	d := cfg.Dedup
	return storage.Config{
		Driver:      d.Driver,
		Path:        d.Path,
		BusyTimeout: config.Duration(d.BusyTimeout, 0),
		RedisURL:    d.RedisURL,
		Key:         d.Key,
		LockTimeout: config.Duration(d.LockTimeout, 0),
	}
}

func mapDedupOptions(cfg *config.Config) dedup.Options {
	return dedup.Options{Threshold: cfg.Dedup.SimilarityThreshold, HistorySize: cfg.Dedup.HistorySize}
}

func mapLLMConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  config.Duration(cfg.LLM.Timeout, 60*time.Second),
	}
}

func mapFormatOptions(cfg *config.Config) format.Options {
	return format.Options{
		Model:          cfg.Formatter.Model,
		MaxAttempts:    cfg.Formatter.MaxAttempts,
		RefusalMarkers: cfg.Formatter.RefusalMarkers,
	}
}

func mapProfilesConfig(cfg *config.Config) profiles.Config {
	return profiles.Config{Driver: cfg.Profiles.Driver, DSN: cfg.Profiles.DSN, Table: cfg.Profiles.Table}
}

func mapDistributeOptions(cfg *config.Config) distribute.Options {
	return distribute.Options{
		Broadcast:         cfg.Broadcast.Enabled,
		Destination:       kit.ChatTarget{ChatID: cfg.Destination.ChatID, ThreadID: cfg.Destination.ThreadID},
		KeepPhotoTriggers: cfg.Broadcast.KeepPhotoTriggers,
		Personal:          cfg.Personal.Enabled,
		Intro:             cfg.Personal.Intro,
		Workers:           cfg.Personal.Workers,
		RatePerSec:        cfg.Personal.RatePerSec,
		Burst:             cfg.Personal.Burst,
		TempDir:           cfg.Media.TempDir,
	}
}

func mapMediaOptions(cfg *config.Config) media.Options {
	return media.Options{Dir: cfg.Media.TempDir, MinBytes: cfg.Media.MinBytes, MinSide: cfg.Media.MinSide}
}

func mapOCRConfig(cfg *config.Config) ocr.Config {
	return ocr.Config{
		Command:   cfg.OCR.Command,
		Languages: cfg.OCR.Languages,
		Timeout:   config.Duration(cfg.OCR.Timeout, 30*time.Second),
	}
}

func mapSources(cfg *config.Config) []ingest.Source {
	out := make([]ingest.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, ingest.Source{Name: s.Name, ChatID: s.ChatID, ThreadID: s.ThreadID})
	}
	return out
}

func mapEngineConfig(cfg *config.Config) engine.Config {
	p := cfg.Pipeline
	return engine.Config{
		Workers:        p.Workers,
		QueueSize:      p.QueueSize,
		DefaultTimeout: config.Duration(p.TaskTimeout, 10*time.Minute),
		HistorySize:    p.HistorySize,
	}
}
