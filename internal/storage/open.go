package storage

import (
	"fmt"
	"strings"

	logx "castbot/pkg/logx"
)

// Open initializes the configured history store.
func Open(cfg Config, log logx.Logger) (HistoryStore, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = defaultKey
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		return openFile(cfg, log.With(logx.String("driver", "file")))
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log.With(logx.String("driver", "sqlite")))
	case "redis":
		return openRedis(cfg, log.With(logx.String("driver", "redis")))
	case "none":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}
