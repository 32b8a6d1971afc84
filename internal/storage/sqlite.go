package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "castbot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
	key string
}

func openSQLite(cfg Config, log logx.Logger) (HistoryStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", sqliteDSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, err
	}
	// One connection: goroutines queue on the pool, processes on the
	// database lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &sqliteStore{db: db, log: log, key: cfg.Key}, nil
}

// sqliteDSN carries the pragmas in the DSN so the driver applies them to
// every connection it opens, reconnects included.
func sqliteDSN(path string, busy time.Duration) string {
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM history_doc WHERE name = ?`, s.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeHistory([]byte(body), s.log), nil
}

// Update holds a RESERVED lock from the first read to the commit, which
// serializes writers in other processes that share the database file.
func (s *sqliteStore) Update(ctx context.Context, fn Mutator) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var body string
	cur := []string{}
	switch qerr := conn.QueryRowContext(ctx, `SELECT body FROM history_doc WHERE name = ?`, s.key).Scan(&body); {
	case errors.Is(qerr, sql.ErrNoRows):
	case qerr != nil:
		return qerr
	default:
		cur = decodeHistory([]byte(body), s.log)
	}

	next, changed := fn(cur)
	if !changed {
		_, err = conn.ExecContext(ctx, "COMMIT")
		return err
	}
	b, err := encodeHistory(next)
	if err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx,
		`INSERT INTO history_doc(name, body, updated_at) VALUES(?,?,?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.key, string(b), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx, "COMMIT")
	return err
}
