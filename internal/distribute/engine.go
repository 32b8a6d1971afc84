package distribute

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"castbot/internal/eventbus"
	"castbot/internal/profiles"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

type Engine struct {
	tr       kit.Adapter
	matcher  Matcher
	profiles profiles.Source
	bus      eventbus.Bus
	log      logx.Logger

	opts    atomic.Pointer[Options]
	limiter *rate.Limiter
}

func New(tr kit.Adapter, m Matcher, src profiles.Source, opts Options, bus eventbus.Bus, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	e := &Engine{tr: tr, matcher: m, profiles: src, bus: bus, log: log.With(logx.Component("distribute"))}
	o := opts.withDefaults()
	e.limiter = rate.NewLimiter(rate.Limit(o.RatePerSec), o.Burst)
	e.opts.Store(&o)
	return e
}

// SetOptions applies to castings distributed after the call.
func (e *Engine) SetOptions(opts Options) {
	o := opts.withDefaults()
	e.limiter.SetLimit(rate.Limit(o.RatePerSec))
	e.limiter.SetBurst(o.Burst)
	e.opts.Store(&o)
}

func (e *Engine) Options() Options { return *e.opts.Load() }

// Distribute runs the broadcast and personal paths concurrently and waits
// for both. Failures are logged and reported, never returned.
func (e *Engine) Distribute(ctx context.Context, c Casting) Report {
	opts := e.Options()
	var (
		rep Report
		wg  sync.WaitGroup
	)
	if opts.Broadcast {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := e.Broadcast(ctx, c)
			rep.Broadcast = &a
		}()
	}
	if opts.Personal {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep.Personal, rep.Matched, rep.Profiles = e.personal(ctx, c, opts)
		}()
	}
	wg.Wait()
	return rep
}

// wait takes a transport token; the caller's ctx bounds the wait.
func (e *Engine) wait(ctx context.Context) error {
	return e.limiter.Wait(ctx)
}

func (e *Engine) publish(typ, runID string, a Attempt) {
	d := eventbus.Delivery{RunID: runID, ChatID: a.ChatID, Tier: int(a.Tier), Mode: a.Mode, Took: a.Took}
	if a.Err != nil {
		d.Err = a.Err.Error()
	}
	e.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: d})
}
