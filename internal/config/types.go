package config

// Config is the on-disk configuration (JSON or YAML). Durations are Go
// duration strings ("500ms", "30s"). Secrets may be left empty and supplied
// through the environment, see ApplyEnv.
type Config struct {
	Telegram    TelegramConfig    `json:"telegram"`
	Logging     LoggingConfig     `json:"logging"`
	Sources     []SourceConfig    `json:"sources"`
	Destination DestinationConfig `json:"destination"`
	Dedup       DedupConfig       `json:"dedup"`
	LLM         LLMConfig         `json:"llm"`
	Formatter   FormatterConfig   `json:"formatter"`
	Media       MediaConfig       `json:"media"`
	OCR         OCRConfig         `json:"ocr"`
	Broadcast   BroadcastConfig   `json:"broadcast"`
	Personal    PersonalConfig    `json:"personal"`
	Profiles    ProfilesConfig    `json:"profiles"`
	Pipeline    PipelineConfig    `json:"pipeline"`
	Ops         OpsConfig         `json:"ops"`
}

type TelegramConfig struct {
	Token       string `json:"token,omitempty"`
	PollTimeout string `json:"poll_timeout,omitempty"`
	// CallTimeout bounds every Bot API request (default 30s).
	CallTimeout string `json:"call_timeout,omitempty"`
	// AlbumWindow is the quiet period that closes a media group.
	AlbumWindow string `json:"album_window,omitempty"`
	// APIURL points at a self-hosted Bot API server.
	APIURL string `json:"api_url,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors warnings to an operator chat.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SourceConfig is one monitored chat. A nil ThreadID accepts every post of
// the chat; otherwise only posts of that topic pass.
type SourceConfig struct {
	Name     string `json:"name,omitempty"`
	ChatID   int64  `json:"chat_id"`
	ThreadID *int   `json:"thread_id,omitempty"`
}

type DestinationConfig struct {
	ChatID   int64 `json:"chat_id"`
	ThreadID int   `json:"thread_id,omitempty"`
}

// DedupConfig selects the history backend and the duplicate policy.
//
// Example:
//
//	"dedup": { "driver": "file", "path": "./casting_history.json" }
type DedupConfig struct {
	Driver              string  `json:"driver"` // file (default), sqlite, redis, none
	Path                string  `json:"path,omitempty"`
	BusyTimeout         string  `json:"busy_timeout,omitempty"`
	LockTimeout         string  `json:"lock_timeout,omitempty"`
	RedisURL            string  `json:"redis_url,omitempty"`
	Key                 string  `json:"key,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	HistorySize         int     `json:"history_size,omitempty"`
}

type LLMConfig struct {
	Provider     string `json:"provider"` // openai (default) or gemini
	APIKey       string `json:"api_key,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
	Timeout      string `json:"timeout,omitempty"`
	CastingModel string `json:"casting_model,omitempty"`
	MatchModel   string `json:"match_model,omitempty"`
}

type FormatterConfig struct {
	Model          string   `json:"model,omitempty"`
	MaxAttempts    int      `json:"max_attempts,omitempty"`
	RefusalMarkers []string `json:"refusal_markers,omitempty"`
}

type MediaConfig struct {
	TempDir string `json:"temp_dir,omitempty"`
	// MinBytes and MinSide reject link-preview thumbnails.
	MinBytes int64 `json:"min_bytes,omitempty"`
	MinSide  int   `json:"min_side,omitempty"`
	// SweepSchedule is a cron spec for removing orphaned temp files older
	// than SweepMaxAge. Empty disables the sweeper.
	SweepSchedule string `json:"sweep_schedule,omitempty"`
	SweepMaxAge   string `json:"sweep_max_age,omitempty"`
}

type OCRConfig struct {
	Enabled   bool   `json:"enabled"`
	Command   string `json:"command,omitempty"`
	Languages string `json:"languages,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
}

type BroadcastConfig struct {
	Enabled bool `json:"enabled"`
	// KeepPhotoTriggers are lower-case phrases; a match keeps the casting
	// image in the broadcast.
	KeepPhotoTriggers []string `json:"keep_photo_triggers,omitempty"`
}

type PersonalConfig struct {
	Enabled    bool    `json:"enabled"`
	Workers    int     `json:"workers,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
	Burst      int     `json:"burst,omitempty"`
	Intro      string  `json:"intro,omitempty"`
}

type ProfilesConfig struct {
	Driver string `json:"driver"` // sqlite, postgres, json
	DSN    string `json:"dsn,omitempty"`
	Table  string `json:"table,omitempty"`
}

// PipelineConfig sizes the per-event worker pool.
type PipelineConfig struct {
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	TaskTimeout string `json:"task_timeout,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
}

type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default 127.0.0.1:8088
	// Pprof exposes /debug/pprof on the same listener. Keep Addr on
	// loopback when enabling it.
	Pprof bool `json:"pprof,omitempty"`
}
