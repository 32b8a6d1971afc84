package ops

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castbot/internal/eventbus"
	"castbot/internal/task/engine"
	logx "castbot/pkg/logx"
)

type fixedHistory []string

func (f fixedHistory) History(context.Context) ([]string, error) { return f, nil }

type fixedPool engine.Snapshot

func (f fixedPool) Snapshot() engine.Snapshot { return engine.Snapshot(f) }

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil), 2000)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestCollectorCountsEvents(t *testing.T) {
	c := NewCollector()
	c.Observe(eventbus.Event{Type: eventbus.CastingReceived})
	c.Observe(eventbus.Event{Type: eventbus.CastingReceived})
	c.Observe(eventbus.Event{Type: eventbus.CastingIgnored, Data: eventbus.Ignored{Reason: "not_casting"}})
	c.Observe(eventbus.Event{Type: eventbus.CastingFormatted, Data: eventbus.Formatted{Outcome: "template"}})
	c.Observe(eventbus.Event{Type: eventbus.CastingDone, Data: eventbus.Stage{Took: 1500 * time.Millisecond}})
	c.Observe(eventbus.Event{Type: eventbus.DeliveryBroadcast, Data: eventbus.Delivery{}})
	c.Observe(eventbus.Event{Type: eventbus.DeliveryPersonal, Data: eventbus.Delivery{Tier: 1}})
	c.Observe(eventbus.Event{Type: eventbus.DeliveryPersonal, Data: eventbus.Delivery{Tier: 2}})
	c.Observe(eventbus.Event{Type: eventbus.DeliveryPersonal, Data: eventbus.Delivery{Err: "blocked"}})

	got := c.Snapshot()
	assert.Equal(t, uint64(2), got.Received)
	assert.Equal(t, map[string]uint64{"not_casting": 1}, got.Ignored)
	assert.Equal(t, map[string]uint64{"template": 1}, got.Formatted)
	assert.Equal(t, uint64(1), got.Done)
	assert.Equal(t, int64(1500), got.LastDoneMS)
	assert.Equal(t, uint64(1), got.BroadcastOK)
	assert.Equal(t, map[string]uint64{"tier1": 1, "tier2": 1}, got.PersonalTiers)
	assert.Equal(t, uint64(1), got.PersonalFailed)

	got.Ignored["x"] = 9
	assert.NotContains(t, c.Snapshot().Ignored, "x")
}

func TestCollectorRunStopsWithContext(t *testing.T) {
	bus := eventbus.New()
	c := NewCollector()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, bus)
		close(done)
	}()

	require.Eventually(t, func() bool {
		bus.Publish(eventbus.Event{Type: eventbus.CastingDuplicate})
		return c.Snapshot().Duplicates > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestHealthz(t *testing.T) {
	var fatal error
	s := NewServer(Deps{Health: func() error { return fatal }}, logx.Nop())

	code, body := get(t, s, "/healthz")
	assert.Equal(t, 200, code)
	assert.Equal(t, true, body["ok"])

	fatal = errors.New("telebot.poll: gave up")
	code, body = get(t, s, "/healthz")
	assert.Equal(t, 503, code)
	assert.Equal(t, "telebot.poll: gave up", body["error"])
}

func TestStatsAndDedup(t *testing.T) {
	col := NewCollector()
	col.Observe(eventbus.Event{Type: eventbus.CastingReceived})
	s := NewServer(Deps{
		Stats:      col,
		Pool:       fixedPool{Running: true, Workers: 4, QueueCap: 64},
		History:    fixedHistory{"a | ", "b | ", "c | "},
		BusDropped: func() uint64 { return 3 },
	}, logx.Nop())

	code, body := get(t, s, "/stats")
	require.Equal(t, 200, code)
	assert.Equal(t, float64(1), body["pipeline"].(map[string]any)["received"])
	assert.Equal(t, float64(4), body["pool"].(map[string]any)["workers"])
	assert.Equal(t, float64(3), body["bus_dropped"])

	code, body = get(t, s, "/dedup?limit=2")
	require.Equal(t, 200, code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, []any{"b | ", "c | "}, body["fingerprints"])
}

func TestDedupDisabled(t *testing.T) {
	code, _ := get(t, NewServer(Deps{}, logx.Nop()), "/dedup")
	assert.Equal(t, 404, code)
}

func TestPprofMountedOnlyWhenEnabled(t *testing.T) {
	off := NewServer(Deps{}, logx.Nop())
	resp, err := off.App().Test(httptest.NewRequest("GET", "/debug/pprof/", nil), 2000)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)

	on := NewServer(Deps{Pprof: true}, logx.Nop())
	resp, err = on.App().Test(httptest.NewRequest("GET", "/debug/pprof/", nil), 2000)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
