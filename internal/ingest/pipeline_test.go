package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"castbot/internal/dedup"
	"castbot/internal/distribute"
	"castbot/internal/eventbus"
	"castbot/internal/format"
	"castbot/internal/llm"
	"castbot/internal/profiles"
	"castbot/internal/storage"
	"castbot/internal/task/engine"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, which starts a worker goroutine from init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const (
	wholeChat = int64(-1001)
	forumChat = int64(-2002)
	destChat  = int64(-9009)
)

type classifierFunc func(text string, img *llm.Image) bool

type countingClassifier struct {
	calls atomic.Int32
	fn    classifierFunc
}

func (c *countingClassifier) IsCasting(_ context.Context, text string, img *llm.Image) bool {
	c.calls.Add(1)
	return c.fn(text, img)
}

type prefixFormatter struct{}

func (prefixFormatter) Run(_ context.Context, text string, _ *llm.Image) format.Result {
	return format.Result{Text: "Проект: " + text, Outcome: format.OutcomeTemplate, Attempts: 1}
}

type recordingDistributor struct {
	mu  sync.Mutex
	got []distribute.Casting
}

func (r *recordingDistributor) Distribute(_ context.Context, c distribute.Casting) distribute.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, c)
	return distribute.Report{}
}

func intp(v int) *int { return &v }

func testSources() []Source {
	return []Source{
		{Name: "whole", ChatID: wholeChat},
		{Name: "forum", ChatID: forumChat, ThreadID: intp(5)},
	}
}

func newDeduper(t *testing.T) *dedup.Checker {
	t.Helper()
	store, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "history.json")}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return dedup.New(store, dedup.Options{}, logx.Nop())
}

func textEvent(chatID int64, id int, text string) kit.Event {
	return kit.Event{Messages: []kit.Message{{ID: id, ChatID: chatID, ChatTitle: "Кастинги", Platform: kit.PlatformTelegram, Text: text}}}
}

func TestSourcesMatch(t *testing.T) {
	s := NewSources(testSources())
	assert.Equal(t, 2, s.Len())

	name, ok := s.Match(kit.Message{ChatID: wholeChat, ThreadID: 99})
	assert.True(t, ok)
	assert.Equal(t, "whole", name)

	_, ok = s.Match(kit.Message{ChatID: forumChat, ThreadID: 5})
	assert.True(t, ok)
	_, ok = s.Match(kit.Message{ChatID: forumChat, ReplyToTopID: 5})
	assert.True(t, ok, "topic from reply header")
	_, ok = s.Match(kit.Message{ChatID: forumChat, ReplyToMsgID: 5})
	assert.True(t, ok, "topic from replied message")
	_, ok = s.Match(kit.Message{ChatID: forumChat, ThreadID: 6, ReplyToTopID: 5})
	assert.False(t, ok, "first non-zero extractor wins")
	_, ok = s.Match(kit.Message{ChatID: forumChat})
	assert.False(t, ok, "no topic")
	_, ok = s.Match(kit.Message{ChatID: 42})
	assert.False(t, ok)
}

func TestExtractText(t *testing.T) {
	assert.Equal(t, "", ExtractText(kit.Event{}))
	assert.Equal(t, "body", ExtractText(kit.Event{Messages: []kit.Message{{Text: "body", Caption: "cap"}}}))
	assert.Equal(t, "cap", ExtractText(kit.Event{Messages: []kit.Message{{Text: "  \n", Caption: "cap"}}}))
	assert.Equal(t, "second", ExtractText(kit.Event{Messages: []kit.Message{{}, {Caption: "second"}}}))
}

func TestProcessDistributesNewCastingOnce(t *testing.T) {
	cls := &countingClassifier{fn: func(string, *llm.Image) bool { return true }}
	dist := &recordingDistributor{}
	bus := eventbus.New()
	events, unsub := bus.Subscribe(64)
	defer unsub()

	p := New(Stages{
		Classifier:  cls,
		Dedup:       newDeduper(t),
		Formatter:   prefixFormatter{},
		Distributor: dist,
	}, testSources(), bus, logx.Nop())

	ctx := context.Background()
	ev := textEvent(wholeChat, 10, "Ищем актрису 25-30 лет, съёмки 12.05")
	assert.Equal(t, OutcomeDistributed, p.Process(ctx, ev))
	assert.Equal(t, OutcomeDuplicate, p.Process(ctx, textEvent(wholeChat, 11, "Ищем актрису 25-30 лет, съёмки 12.05")))

	require.Len(t, dist.got, 1)
	got := dist.got[0]
	assert.Equal(t, "Проект: Ищем актрису 25-30 лет, съёмки 12.05", got.Text)
	assert.Equal(t, "Кастинги", got.SourceTitle)
	assert.Equal(t, "Ищем актрису 25-30 лет, съёмки 12.05", got.RawText)
	assert.NotEmpty(t, got.RunID)
	assert.Empty(t, got.ImagePath)

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	assert.Equal(t, []string{
		eventbus.CastingReceived, eventbus.CastingFormatted, eventbus.CastingDone,
		eventbus.CastingReceived, eventbus.CastingDuplicate,
	}, types)
}

func TestProcessFiltersBeforeClassification(t *testing.T) {
	cls := &countingClassifier{fn: func(string, *llm.Image) bool { return true }}
	dist := &recordingDistributor{}
	p := New(Stages{Classifier: cls, Dedup: newDeduper(t), Formatter: prefixFormatter{}, Distributor: dist}, testSources(), nil, logx.Nop())

	ev := kit.Event{Messages: []kit.Message{{ID: 1, ChatID: forumChat, ThreadID: 6, Text: "Кастинг"}}}
	assert.Equal(t, OutcomeFiltered, p.Process(context.Background(), ev))
	assert.Equal(t, OutcomeFiltered, p.Process(context.Background(), textEvent(777, 1, "Кастинг")))
	assert.Zero(t, cls.calls.Load())
	assert.Empty(t, dist.got)
}

func TestProcessStopsAtEmptyAndNonCasting(t *testing.T) {
	cls := &countingClassifier{fn: func(text string, _ *llm.Image) bool { return text == "Кастинг" }}
	dist := &recordingDistributor{}
	p := New(Stages{Classifier: cls, Dedup: newDeduper(t), Formatter: prefixFormatter{}, Distributor: dist}, testSources(), nil, logx.Nop())

	ctx := context.Background()
	assert.Equal(t, OutcomeEmpty, p.Process(ctx, textEvent(wholeChat, 1, "")))
	assert.Equal(t, OutcomeNotCasting, p.Process(ctx, textEvent(wholeChat, 2, "Продам диван")))
	assert.Equal(t, int32(1), cls.calls.Load())
	assert.Empty(t, dist.got)
}

func TestSetSourcesAppliesToNextRun(t *testing.T) {
	cls := &countingClassifier{fn: func(string, *llm.Image) bool { return true }}
	p := New(Stages{Classifier: cls, Dedup: newDeduper(t), Formatter: prefixFormatter{}, Distributor: &recordingDistributor{}}, nil, nil, logx.Nop())

	ev := textEvent(wholeChat, 1, "Кастинг")
	assert.False(t, p.Accepts(ev))
	p.SetSources(testSources())
	assert.True(t, p.Accepts(ev))
}

// The end-to-end case goes through the real distribution engine: the
// destination gets the formatted post with the source label and the
// matching subscriber gets the original forwarded.
func TestProcessEndToEnd(t *testing.T) {
	tr := &recordingAdapter{}
	src := profiles.Static{
		{ID: 501, Sex: "female", AgeRange: "20-25", Cities: "Алматы"},
		{ID: 502, Sex: "male", AgeRange: "40-45", Cities: "Астана"},
	}
	dist := distribute.New(tr, matchFemale{}, src, distribute.Options{
		Broadcast:   true,
		Destination: kit.ChatTarget{ChatID: destChat},
		Personal:    true,
		RatePerSec:  1000,
		TempDir:     t.TempDir(),
	}, nil, logx.Nop())

	p := New(Stages{
		Classifier:  &countingClassifier{fn: func(string, *llm.Image) bool { return true }},
		Dedup:       newDeduper(t),
		Formatter:   prefixFormatter{},
		Distributor: dist,
	}, testSources(), nil, logx.Nop())

	ev := textEvent(wholeChat, 77, "Казакша фильм, актриса 20-25 лет, Алматы")
	require.Equal(t, OutcomeDistributed, p.Process(context.Background(), ev))

	calls := tr.snapshot()
	require.Len(t, calls, 2)
	byChat := map[int64]call{}
	for _, c := range calls {
		byChat[c.to] = c
	}
	assert.Equal(t, "text", byChat[destChat].op)
	assert.Equal(t, "Проект: Казакша фильм, актриса 20-25 лет, Алматы\n\n<blockquote>Источник(Telegram): Кастинги</blockquote>", byChat[destChat].body)
	assert.Equal(t, "forward", byChat[501].op)
	assert.Equal(t, []kit.MessageRef{{ChatID: wholeChat, MessageID: 77}}, byChat[501].refs)
	_, served := byChat[502]
	assert.False(t, served)
}

func TestDispatchQueuesAcceptedEvents(t *testing.T) {
	dist := &recordingDistributor{}
	p := New(Stages{
		Classifier:  &countingClassifier{fn: func(string, *llm.Image) bool { return true }},
		Dedup:       newDeduper(t),
		Formatter:   prefixFormatter{},
		Distributor: dist,
	}, testSources(), nil, logx.Nop())

	pool := engine.New(engine.Config{Workers: 1, QueueSize: 8, DefaultTimeout: 5 * time.Second}, logx.Nop(), nil)
	pool.Start(context.Background())
	defer pool.Stop(context.Background())

	in := make(chan kit.Event, 4)
	in <- textEvent(777, 1, "чужой чат")
	in <- textEvent(wholeChat, 2, "Кастинг один")
	in <- textEvent(wholeChat, 3, "Совсем другой кастинг")
	close(in)

	p.Dispatch(context.Background(), in, pool)

	require.Eventually(t, func() bool {
		dist.mu.Lock()
		defer dist.mu.Unlock()
		return len(dist.got) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

type call struct {
	op   string
	to   int64
	body string
	refs []kit.MessageRef
}

type recordingAdapter struct {
	mu    sync.Mutex
	calls []call
}

func (r *recordingAdapter) add(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingAdapter) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recordingAdapter) Start(context.Context, chan<- kit.Event) error { return nil }
func (r *recordingAdapter) Stop(context.Context) error                    { return nil }

func (r *recordingAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	r.add(call{op: "text", to: to.ChatID, body: text})
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (r *recordingAdapter) SendPhoto(_ context.Context, to kit.ChatTarget, _, caption string, _ *kit.SendOptions) (kit.MessageRef, error) {
	r.add(call{op: "photo", to: to.ChatID, body: caption})
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (r *recordingAdapter) SendFile(_ context.Context, to kit.ChatTarget, _, caption string, _ *kit.SendOptions) (kit.MessageRef, error) {
	r.add(call{op: "file", to: to.ChatID, body: caption})
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (r *recordingAdapter) Forward(_ context.Context, to kit.ChatTarget, msgs []kit.MessageRef) error {
	r.add(call{op: "forward", to: to.ChatID, refs: msgs})
	return nil
}

func (r *recordingAdapter) Download(context.Context, kit.Media, string) (string, error) {
	return "", context.Canceled
}

// matchFemale stands in for the model: the casting asks for an actress.
type matchFemale struct{}

func (matchFemale) Matches(_ context.Context, _ string, p profiles.Profile) bool {
	return p.Sex == "female"
}
