package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrConflict = errors.New("storage: too many concurrent writers")
)

// Config selects and configures a driver.
type Config struct {
	Driver      string
	Path        string        // file, sqlite
	BusyTimeout time.Duration // sqlite; 0 means 5s
	RedisURL    string        // redis
	Key         string        // document name (sqlite row, redis key)
	LockTimeout time.Duration // file; 0 means 10s
}

// Mutator receives the current history (never nil, possibly empty) and
// returns the next one. changed=false skips the write. A Mutator may run more
// than once per Update when a driver retries an optimistic transaction, so it
// must not have side effects beyond its return values.
type Mutator func(history []string) (next []string, changed bool)

// HistoryStore is the persistence API used by the duplicate checker.
type HistoryStore interface {
	// Update runs fn inside one exclusive critical section spanning every
	// process that shares the store.
	Update(ctx context.Context, fn Mutator) error
	// Load returns a snapshot without taking the write lock.
	Load(ctx context.Context) ([]string, error)
	Close() error
}

const defaultKey = "castbot:dedup:history"
