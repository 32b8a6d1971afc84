package ops

import (
	"context"
	"strconv"
	"sync"
	"time"

	"castbot/internal/eventbus"
)

// Counters is the aggregated view of pipeline events since start.
type Counters struct {
	Since      time.Time         `json:"since"`
	Received   uint64            `json:"received"`
	Ignored    map[string]uint64 `json:"ignored"`
	Duplicates uint64            `json:"duplicates"`
	Formatted  map[string]uint64 `json:"formatted"`
	Done       uint64            `json:"done"`
	LastDoneMS int64             `json:"last_done_ms"`

	BroadcastOK     uint64            `json:"broadcast_ok"`
	BroadcastFailed uint64            `json:"broadcast_failed"`
	PersonalTiers   map[string]uint64 `json:"personal_tiers"`
	PersonalFailed  uint64            `json:"personal_failed"`
}

// Collector counts casting.* and delivery.* events from the bus.
type Collector struct {
	mu sync.Mutex
	c  Counters
}

func NewCollector() *Collector {
	return &Collector{c: Counters{
		Since:         time.Now(),
		Ignored:       map[string]uint64{},
		Formatted:     map[string]uint64{},
		PersonalTiers: map[string]uint64{},
	}}
}

// Run consumes bus events until ctx ends.
func (c *Collector) Run(ctx context.Context, bus eventbus.Bus) {
	ch, unsub := bus.Subscribe(256)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			c.Observe(e)
		}
	}
}

func (c *Collector) Observe(e eventbus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case eventbus.CastingReceived:
		c.c.Received++
	case eventbus.CastingIgnored:
		if d, ok := e.Data.(eventbus.Ignored); ok {
			c.c.Ignored[d.Reason]++
		}
	case eventbus.CastingDuplicate:
		c.c.Duplicates++
	case eventbus.CastingFormatted:
		if d, ok := e.Data.(eventbus.Formatted); ok {
			c.c.Formatted[d.Outcome]++
		}
	case eventbus.CastingDone:
		c.c.Done++
		if d, ok := e.Data.(eventbus.Stage); ok {
			c.c.LastDoneMS = d.Took.Milliseconds()
		}
	case eventbus.DeliveryBroadcast:
		if d, ok := e.Data.(eventbus.Delivery); ok && d.Err == "" {
			c.c.BroadcastOK++
		} else {
			c.c.BroadcastFailed++
		}
	case eventbus.DeliveryPersonal:
		d, ok := e.Data.(eventbus.Delivery)
		if !ok || d.Tier == 0 {
			c.c.PersonalFailed++
			return
		}
		c.c.PersonalTiers["tier"+strconv.Itoa(d.Tier)]++
	}
}

// Snapshot returns a deep copy.
func (c *Collector) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.c
	out.Ignored = copyMap(c.c.Ignored)
	out.Formatted = copyMap(c.c.Formatted)
	out.PersonalTiers = copyMap(c.c.PersonalTiers)
	return out
}

func copyMap(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
