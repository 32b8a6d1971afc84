package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "castbot/pkg/logx"
)

func appendOne(v string) Mutator {
	return func(h []string) ([]string, bool) {
		return append(h, v), true
	}
}

// conformance runs the shared contract against two handles that point at the
// same underlying document, standing in for two processes.
func conformance(t *testing.T, a, b HistoryStore) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		h, err := a.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("unchanged mutator does not write", func(t *testing.T) {
		require.NoError(t, a.Update(ctx, func(h []string) ([]string, bool) {
			return append(h, "ignored"), false
		}))
		h, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("write visible through other handle", func(t *testing.T) {
		require.NoError(t, a.Update(ctx, appendOne("first")))
		h, err := b.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"first"}, h)
	})

	t.Run("no lost updates", func(t *testing.T) {
		const n = 40
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			st := a
			if i%2 == 1 {
				st = b
			}
			wg.Add(1)
			go func(i int, st HistoryStore) {
				defer wg.Done()
				errs <- st.Update(ctx, appendOne(fmt.Sprintf("v%02d", i)))
			}(i, st)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		h, err := a.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, h, n+1)
		assert.Equal(t, "first", h[0])
	})
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dedup", "history.json")

	a, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	b, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	conformance(t, a, b)
}

func TestFileStoreCorruptDocumentIsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"`), 0o600))

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)

	h, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h)

	require.NoError(t, st.Update(context.Background(), appendOne("fresh")))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["fresh"]`, string(raw))
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "castbot.db")

	a, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	b, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	conformance(t, a, b)
}

func TestSQLiteDSN(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"/var/lib/castbot/history.db?_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29&_pragma=synchronous%28NORMAL%29",
		sqliteDSN("/var/lib/castbot/history.db", 0))
	assert.Contains(t, sqliteDSN("h.db", 250*time.Millisecond), "busy_timeout%28250%29")
}

func TestSQLitePragmasApplied(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "castbot.db"), BusyTimeout: 1500 * time.Millisecond}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	db := st.(*sqliteStore).db

	var busy int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 1500, busy)
	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	a := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:history", logx.Nop())
	b := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:history", logx.Nop())
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	conformance(t, a, b)
}

func TestRedisStoreCorruptDocumentIsEmpty(t *testing.T) {
	t.Parallel()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)
	require.NoError(t, mr.Set("test:history", "not json"))

	st, err := Open(Config{Driver: "redis", RedisURL: "redis://" + mr.Addr(), Key: "test:history"}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "mongo"}, logx.Nop())
	assert.Error(t, err)

	_, err = Open(Config{Driver: "none"}, logx.Nop())
	assert.ErrorIs(t, err, ErrDisabled)
}
