package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultIntro    = "🎯 Найден подходящий кастинг для вас!"
	DefaultOpsAddr  = "127.0.0.1:8088"
	sweepDisabled   = "off"
	defaultHistory  = "./casting_history.json"
	defaultMinBytes = 15000
	defaultMinSide  = 150
)

// DefaultKeepPhotoTriggers are the phrases that tell readers to look at the
// attached picture.
var DefaultKeepPhotoTriggers = []string{
	"как на фото", "как на картинке", "как на изображении",
	"см. фото", "смотри фото", "см. картинку",
	"like the photo", "as in the photo", "see photo",
}

// ApplyDefaults fills every omitted field. Durations stay strings; callers
// parse them with Duration.
func (c *Config) ApplyDefaults() {
	def := func(p *string, v string) {
		if strings.TrimSpace(*p) == "" {
			*p = v
		}
	}
	defInt := func(p *int, v int) {
		if *p <= 0 {
			*p = v
		}
	}

	def(&c.Telegram.PollTimeout, "10s")
	def(&c.Telegram.CallTimeout, "30s")
	def(&c.Telegram.AlbumWindow, "1500ms")

	def(&c.Logging.Level, "info")
	def(&c.Logging.Telegram.MinLevel, "warn")
	defInt(&c.Logging.Telegram.RatePerSec, 1)

	c.Dedup.Driver = strings.ToLower(strings.TrimSpace(c.Dedup.Driver))
	def(&c.Dedup.Driver, "file")
	if c.Dedup.Driver == "file" || c.Dedup.Driver == "sqlite" {
		def(&c.Dedup.Path, defaultHistory)
	}
	if c.Dedup.SimilarityThreshold <= 0 {
		c.Dedup.SimilarityThreshold = 0.90
	}
	defInt(&c.Dedup.HistorySize, 20)

	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	def(&c.LLM.Provider, "openai")
	def(&c.LLM.Timeout, "60s")
	def(&c.LLM.CastingModel, "gpt-4o-mini")
	def(&c.LLM.MatchModel, "gpt-4o")

	def(&c.Formatter.Model, "gpt-4o")
	defInt(&c.Formatter.MaxAttempts, 10)

	def(&c.Media.TempDir, filepath.Join(os.TempDir(), "castbot"))
	if c.Media.MinBytes <= 0 {
		c.Media.MinBytes = defaultMinBytes
	}
	defInt(&c.Media.MinSide, defaultMinSide)
	def(&c.Media.SweepSchedule, "@every 15m")
	def(&c.Media.SweepMaxAge, "1h")

	def(&c.OCR.Command, "tesseract")
	def(&c.OCR.Languages, "rus+eng")
	def(&c.OCR.Timeout, "30s")

	if c.Broadcast.KeepPhotoTriggers == nil {
		c.Broadcast.KeepPhotoTriggers = append([]string(nil), DefaultKeepPhotoTriggers...)
	}

	defInt(&c.Personal.Workers, 4)
	if c.Personal.RatePerSec <= 0 {
		c.Personal.RatePerSec = 20
	}
	defInt(&c.Personal.Burst, c.Personal.Workers)
	def(&c.Personal.Intro, DefaultIntro)

	c.Profiles.Driver = strings.ToLower(strings.TrimSpace(c.Profiles.Driver))
	def(&c.Profiles.Table, "users")

	defInt(&c.Pipeline.Workers, 2)
	defInt(&c.Pipeline.QueueSize, 64)
	def(&c.Pipeline.TaskTimeout, "10m")
	defInt(&c.Pipeline.HistorySize, 200)

	def(&c.Ops.Addr, DefaultOpsAddr)
}

// SweepEnabled reports whether the temp media sweeper should run.
func (m MediaConfig) SweepEnabled() bool {
	s := strings.TrimSpace(m.SweepSchedule)
	return s != "" && !strings.EqualFold(s, sweepDisabled)
}
