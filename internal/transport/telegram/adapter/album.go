package adapter

import (
	"sort"
	"strconv"
	"sync"
	"time"

	kit "castbot/internal/transport"
)

// albumCollector merges the separate updates Telegram sends for each album
// item into one Event, emitted once no new item arrived for window.
type albumCollector struct {
	window time.Duration
	emit   func(kit.Event)

	mu     sync.Mutex
	groups map[string]*albumGroup
}

type albumGroup struct {
	msgs  []kit.Message
	first time.Time
	seq   int
	timer *time.Timer
}

func newAlbumCollector(window time.Duration, emit func(kit.Event)) *albumCollector {
	return &albumCollector{window: window, emit: emit, groups: map[string]*albumGroup{}}
}

func (c *albumCollector) add(m kit.Message) {
	key := strconv.FormatInt(m.ChatID, 10) + "/" + m.AlbumID

	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.groups[key]
	if g == nil {
		g = &albumGroup{first: time.Now()}
		c.groups[key] = g
	} else {
		g.timer.Stop()
	}
	g.msgs = append(g.msgs, m)
	g.seq++
	seq := g.seq
	g.timer = time.AfterFunc(c.window, func() { c.flush(key, g, seq) })
}

// flush emits g unless a newer item re-armed its timer.
func (c *albumCollector) flush(key string, g *albumGroup, seq int) {
	c.mu.Lock()
	if c.groups[key] != g || g.seq != seq {
		c.mu.Unlock()
		return
	}
	delete(c.groups, key)
	c.mu.Unlock()
	c.emit(g.event())
}

func (c *albumCollector) flushAll() {
	c.mu.Lock()
	pending := make([]*albumGroup, 0, len(c.groups))
	for key, g := range c.groups {
		g.timer.Stop()
		pending = append(pending, g)
		delete(c.groups, key)
	}
	c.mu.Unlock()
	for _, g := range pending {
		c.emit(g.event())
	}
}

func (g *albumGroup) event() kit.Event {
	msgs := append([]kit.Message(nil), g.msgs...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return kit.Event{Messages: msgs, ReceivedAt: g.first}
}
