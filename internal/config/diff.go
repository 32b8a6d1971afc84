package config

import (
	"reflect"
	"strings"

	logx "castbot/pkg/logx"
)

// Change describes a reload for logging. Fields never carry secrets.
type Change struct {
	Sections []string
	// Restart lists changed sections that only take effect after a restart.
	Restart []string
	Fields  []logx.Field
}

func (c Change) Empty() bool { return len(c.Sections) == 0 }

// hot marks sections applied to the running pipeline on reload.
var hot = map[string]bool{
	"logging":     true,
	"sources":     true,
	"destination": true,
	"broadcast":   true,
	"formatter":   true,
	"dedup":       true,
	"personal":    true,
}

// SummarizeChange compares two configs section by section.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	mark := func(section string, fields ...logx.Field) {
		ch.Sections = append(ch.Sections, section)
		if !hot[section] {
			ch.Restart = append(ch.Restart, section)
		}
		ch.Fields = append(ch.Fields, fields...)
	}

	o, n := oldCfg.Telegram, newCfg.Telegram
	if o.PollTimeout != n.PollTimeout || o.CallTimeout != n.CallTimeout || o.AlbumWindow != n.AlbumWindow || o.Token != n.Token {
		mark("telegram",
			logx.String("telegram.poll_timeout", n.PollTimeout),
			logx.Bool("telegram.token_changed", o.Token != n.Token),
		)
	}
	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		mark("logging",
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.telegram", newCfg.Logging.Telegram.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Sources, newCfg.Sources) {
		mark("sources", logx.Int("sources.count", len(newCfg.Sources)))
	}
	if oldCfg.Destination != newCfg.Destination {
		mark("destination",
			logx.Int64("destination.chat_id", newCfg.Destination.ChatID),
			logx.Int("destination.thread_id", newCfg.Destination.ThreadID),
		)
	}

	od, nd := oldCfg.Dedup, newCfg.Dedup
	if od.Driver != nd.Driver || od.Path != nd.Path || od.RedisURL != nd.RedisURL || od.Key != nd.Key ||
		od.BusyTimeout != nd.BusyTimeout || od.LockTimeout != nd.LockTimeout {
		mark("dedup.store", logx.String("dedup.driver", nd.Driver))
	}
	if od.SimilarityThreshold != nd.SimilarityThreshold || od.HistorySize != nd.HistorySize {
		mark("dedup",
			logx.Float64("dedup.similarity_threshold", nd.SimilarityThreshold),
			logx.Int("dedup.history_size", nd.HistorySize),
		)
	}

	ol, nl := oldCfg.LLM, newCfg.LLM
	if ol != nl {
		mark("llm",
			logx.String("llm.provider", nl.Provider),
			logx.Bool("llm.api_key_changed", ol.APIKey != nl.APIKey),
		)
	}
	if !reflect.DeepEqual(oldCfg.Formatter, newCfg.Formatter) {
		mark("formatter",
			logx.Int("formatter.max_attempts", newCfg.Formatter.MaxAttempts),
			logx.Int("formatter.refusal_markers", len(newCfg.Formatter.RefusalMarkers)),
		)
	}
	if oldCfg.Media != newCfg.Media {
		mark("media", logx.String("media.temp_dir", newCfg.Media.TempDir))
	}
	if oldCfg.OCR != newCfg.OCR {
		mark("ocr", logx.Bool("ocr.enabled", newCfg.OCR.Enabled))
	}
	if !reflect.DeepEqual(oldCfg.Broadcast, newCfg.Broadcast) {
		mark("broadcast",
			logx.Bool("broadcast.enabled", newCfg.Broadcast.Enabled),
			logx.Int("broadcast.triggers", len(newCfg.Broadcast.KeepPhotoTriggers)),
		)
	}
	op, np := oldCfg.Personal, newCfg.Personal
	if op.Enabled != np.Enabled || op.Intro != np.Intro {
		mark("personal", logx.Bool("personal.enabled", np.Enabled))
	}
	if op.Workers != np.Workers || op.RatePerSec != np.RatePerSec || op.Burst != np.Burst {
		mark("personal.pool", logx.Int("personal.workers", np.Workers))
	}
	if oldCfg.Profiles.Driver != newCfg.Profiles.Driver || oldCfg.Profiles.DSN != newCfg.Profiles.DSN ||
		oldCfg.Profiles.Table != newCfg.Profiles.Table {
		mark("profiles", logx.String("profiles.driver", newCfg.Profiles.Driver))
	}
	if oldCfg.Pipeline != newCfg.Pipeline {
		mark("pipeline", logx.Int("pipeline.workers", newCfg.Pipeline.Workers))
	}
	if oldCfg.Ops != newCfg.Ops {
		mark("ops", logx.Bool("ops.enabled", newCfg.Ops.Enabled))
	}

	if len(ch.Sections) > 0 {
		ch.Fields = append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Fields...)
	}
	return ch
}
