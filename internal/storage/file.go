package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "castbot/pkg/logx"
)

// fileStore keeps the history in one JSON file.
//
// Files:
//   - <path>       the document, replaced atomically via <path>.tmp + rename
//   - <path>.lock  flock target; never renamed so every process locks the same inode
type fileStore struct {
	log         logx.Logger
	path        string
	lockPath    string
	lockTimeout time.Duration

	mu sync.Mutex // serializes goroutines; flock serializes processes
}

func openFile(cfg Config, log logx.Logger) (HistoryStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	lt := cfg.LockTimeout
	if lt <= 0 {
		lt = 10 * time.Second
	}
	return &fileStore{
		log:         log,
		path:        path,
		lockPath:    path + ".lock",
		lockTimeout: lt,
	}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Load(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *fileStore) Update(ctx context.Context, fn Mutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := lockFile(lctx, s.lockPath)
	if err != nil {
		return fmt.Errorf("lock %s: %w", s.lockPath, err)
	}
	defer unlock()

	cur, err := s.read()
	if err != nil {
		return err
	}
	next, changed := fn(cur)
	if !changed {
		return nil
	}
	return s.write(next)
}

func (s *fileStore) read() ([]string, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(b, s.log), nil
}

func (s *fileStore) write(h []string) error {
	b, err := encodeHistory(h)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
