package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
telegram:
  poll_timeout: 5s
logging:
  level: debug
  console: true
sources:
  - name: test topic
    chat_id: -1002712928305
    thread_id: 3
  - chat_id: -4690232474
destination:
  chat_id: -100500
  thread_id: 7
broadcast:
  enabled: true
personal:
  enabled: true
profiles:
  driver: sqlite
  dsn: ./users.db
`

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseYAMLWithEnvAndDefaults(t *testing.T) {
	t.Parallel()
	m := NewManager(writeFile(t, "castbot.yaml", sampleYAML))
	m.SetEnv(env(map[string]string{EnvBotToken: "tok", EnvOpenAIKey: "sk-1"}))

	cfg, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, "sk-1", cfg.LLM.APIKey)
	assert.Equal(t, "5s", cfg.Telegram.PollTimeout)
	assert.Equal(t, "30s", cfg.Telegram.CallTimeout)
	require.Len(t, cfg.Sources, 2)
	require.NotNil(t, cfg.Sources[0].ThreadID)
	assert.Equal(t, 3, *cfg.Sources[0].ThreadID)
	assert.Nil(t, cfg.Sources[1].ThreadID)

	assert.Equal(t, "file", cfg.Dedup.Driver)
	assert.Equal(t, 0.90, cfg.Dedup.SimilarityThreshold)
	assert.Equal(t, 20, cfg.Dedup.HistorySize)
	assert.Equal(t, 10, cfg.Formatter.MaxAttempts)
	assert.EqualValues(t, 15000, cfg.Media.MinBytes)
	assert.Equal(t, 150, cfg.Media.MinSide)
	assert.Equal(t, DefaultKeepPhotoTriggers, cfg.Broadcast.KeepPhotoTriggers)
	assert.Equal(t, DefaultIntro, cfg.Personal.Intro)
	assert.Same(t, cfg, m.Get())
}

func TestFileSecretsWinOverEnv(t *testing.T) {
	t.Parallel()
	cfg := &Config{Telegram: TelegramConfig{Token: "from-file"}, LLM: LLMConfig{Provider: "gemini"}}
	cfg.ApplyEnv(env(map[string]string{EnvBotToken: "from-env", EnvGeminiKey: "g-key", EnvOpenAIKey: "o-key"}))
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, "g-key", cfg.LLM.APIKey)
}

func TestDestinationFromEnv(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	cfg.ApplyEnv(env(map[string]string{EnvDestChatID: "-1002", EnvDestThreadID: "44"}))
	assert.Equal(t, int64(-1002), cfg.Destination.ChatID)
	assert.Equal(t, 44, cfg.Destination.ThreadID)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Decode("c.json", []byte(`{"telegram":{"tokn":"x"}}`))
	require.Error(t, err)

	_, err = Decode("c.json", []byte(`{} {}`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cfg := &Config{Broadcast: BroadcastConfig{Enabled: true}, Dedup: DedupConfig{Driver: "mongo"}}
	cfg.ApplyDefaults()
	cfg.Telegram.PollTimeout = "soon"

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"telegram.token", "sources", "destination.chat_id", "dedup.driver", "llm.api_key", "telegram.poll_timeout"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateDuplicateSource(t *testing.T) {
	t.Parallel()
	three := 3
	cfg := &Config{
		Telegram: TelegramConfig{Token: "t"},
		LLM:      LLMConfig{APIKey: "k"},
		Sources:  []SourceConfig{{ChatID: 1, ThreadID: &three}, {ChatID: 1}, {ChatID: 1, ThreadID: &three}},
	}
	cfg.ApplyDefaults()
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources[2]")
	assert.NotContains(t, err.Error(), "sources[1]")
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	a := &Config{Telegram: TelegramConfig{Token: "secret-1"}}
	a.ApplyDefaults()
	b := *a
	b.Telegram.Token = "secret-2"
	b.Dedup.SimilarityThreshold = 0.85
	b.Broadcast.KeepPhotoTriggers = []string{"см. фото"}

	ch := SummarizeChange(a, &b)
	assert.ElementsMatch(t, []string{"telegram", "dedup", "broadcast"}, ch.Sections)
	assert.Equal(t, []string{"telegram"}, ch.Restart)
	assert.True(t, SummarizeChange(a, a).Empty())
}

func TestWatchPublishesReload(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "castbot.yaml", sampleYAML)
	m := NewManager(path)
	m.SetEnv(env(map[string]string{EnvBotToken: "tok", EnvOpenAIKey: "sk"}))
	_, err := m.Load()
	require.NoError(t, err)

	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"dedup:\n  similarity_threshold: 0.8\n"), 0o600))

	select {
	case cfg := <-sub:
		assert.Equal(t, 0.8, cfg.Dedup.SimilarityThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload published")
	}
	cancel()
	<-done
}

func TestWatchKeepsConfigOnInvalidReload(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "castbot.yaml", sampleYAML)
	m := NewManager(path)
	m.SetEnv(env(map[string]string{EnvBotToken: "tok", EnvOpenAIKey: "sk"}))
	before, err := m.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"dedup:\n  driver: mongo\n"), 0o600))
	m.reload(context.Background())
	assert.Same(t, before, m.Get())
}

func TestDuration(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 3*time.Second, Duration("3s", time.Second))
	assert.Equal(t, time.Second, Duration("", time.Second))
	assert.Equal(t, time.Second, Duration("bogus", time.Second))
	_, err := ParseDuration("x", "-1s")
	assert.Error(t, err)
}
