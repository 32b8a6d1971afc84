package storage

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	logx "castbot/pkg/logx"

	"github.com/redis/go-redis/v9"
)

const redisMaxTxAttempts = 100

type redisStore struct {
	rdb *redis.Client
	log logx.Logger
	key string
}

func openRedis(cfg Config, log logx.Logger) (HistoryStore, error) {
	url := strings.TrimSpace(cfg.RedisURL)
	if url == "" {
		return nil, errors.New("storage.redis_url is required for redis driver")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(opts), cfg.Key, log), nil
}

// NewRedis wraps an existing client. key defaults to castbot:dedup:history.
func NewRedis(rdb *redis.Client, key string, log logx.Logger) HistoryStore {
	if strings.TrimSpace(key) == "" {
		key = defaultKey
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &redisStore{rdb: rdb, log: log, key: key}
}

func (s *redisStore) Close() error { return s.rdb.Close() }

func (s *redisStore) Load(ctx context.Context) ([]string, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory(raw, s.log), nil
}

// Update is an optimistic transaction: WATCH the key, compute, MULTI/EXEC.
// A concurrent writer aborts EXEC and the whole step is retried.
func (s *redisStore) Update(ctx context.Context, fn Mutator) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, s.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, changed := fn(decodeHistory(raw, s.log))
		if !changed {
			return nil
		}
		body, err := encodeHistory(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key, body, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxTxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, s.key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(rand.IntN(5)+1) * time.Millisecond):
		}
	}
	return ErrConflict
}
