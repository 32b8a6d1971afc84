// Package adapter implements transport.Adapter on the Telegram Bot API.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	rtsup "castbot/internal/runtime/supervisor"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

type Config struct {
	Token       string
	APIURL      string        // Bot API base; empty means api.telegram.org
	PollTimeout time.Duration // long-poll wait; default 10s
	CallTimeout time.Duration // per Bot API call; default 30s
	AlbumWindow time.Duration // quiet period closing an album; default 1.5s
}

func (c Config) withDefaults() Config {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 10 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.AlbumWindow <= 0 {
		c.AlbumWindow = 1500 * time.Millisecond
	}
	return c
}

type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot

	out     atomic.Value // chan<- kit.Event
	dropped atomic.Uint64
	albums  *albumCollector

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor
}

var _ kit.Adapter = (*Adapter)(nil)

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		URL:   cfg.APIURL,
		Poller: &tele.LongPoller{
			Timeout:        cfg.PollTimeout,
			AllowedUpdates: []string{"message", "channel_post"},
		},
		// Long polls must outlive the poll timeout; abandoned sends end here.
		Client: &http.Client{Timeout: cfg.PollTimeout + cfg.CallTimeout},
		OnError: func(err error, _ tele.Context) {
			log.Warn("telebot error", logx.Err(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	a := &Adapter{cfg: cfg, log: log, bot: b}
	var nilOut chan<- kit.Event
	a.out.Store(nilOut)
	a.albums = newAlbumCollector(cfg.AlbumWindow, a.emit)
	a.registerHandlers()
	return a, nil
}

// Supervisor exposes the adapter goroutines for health reporting; nil when
// stopped.
func (a *Adapter) Supervisor() *rtsup.Supervisor {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.sup
}

func (a *Adapter) registerHandlers() {
	h := func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Chat == nil {
			return nil
		}
		msg := toMessage(m)
		if msg.AlbumID != "" {
			a.albums.add(msg)
			return nil
		}
		a.emit(kit.Event{Messages: []kit.Message{msg}, ReceivedAt: time.Now()})
		return nil
	}
	// Groups deliver text and media through separate endpoints; channels
	// deliver everything as channel posts.
	a.bot.Handle(tele.OnText, h)
	a.bot.Handle(tele.OnMedia, h)
	a.bot.Handle(tele.OnChannelPost, h)
}

func (a *Adapter) emit(ev kit.Event) {
	out, _ := a.out.Load().(chan<- kit.Event)
	if out == nil {
		return
	}
	select {
	case out <- ev:
	default:
		a.dropped.Add(1)
	}
}

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Event) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	a.out.Store(out)
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.Component("telegram.adapter"))),
		rtsup.WithCancelOnError(false),
	)
	sup := a.sup
	a.runMu.Unlock()

	sup.Go0("updates.drop_report", func(c context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		report := func() {
			if n := a.dropped.Swap(0); n > 0 {
				a.log.Warn("inbound events dropped (pipeline busy)", logx.Int64("count", int64(n)), logx.Int("chan_cap", cap(out)))
			}
		}
		for {
			select {
			case <-c.Done():
				report()
				return
			case <-t.C:
				report()
			}
		}
	})
	sup.Go0("telebot.stop_on_cancel", func(c context.Context) {
		<-c.Done()
		a.bot.Stop()
	})
	// bot.Start blocks until Stop; restart it if it returns on its own.
	sup.GoRestart("telebot.poll", func(c context.Context) error {
		a.log.Info("polling started")
		a.bot.Start()
		a.log.Info("polling stopped")
		return nil
	},
		rtsup.WithRestartBackoff(500*time.Millisecond, 10*time.Second),
		rtsup.WithPublishFirstError(true),
		rtsup.WithStopOnCleanExit(false),
	)
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	sup := a.sup
	a.sup = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	a.albums.flushAll()
	var nilOut chan<- kit.Event
	a.out.Store(nilOut)

	sup.Cancel()
	go a.bot.Stop()

	// getUpdates may still be parked in a long poll; do not hold shutdown.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < grace {
		grace = time.Until(dl)
	}
	wctx, cancel := context.WithTimeout(ctx, max(grace, 0))
	defer cancel()
	if err := sup.Wait(wctx); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		a.log.Debug("telegram stopped with error", logx.Err(err))
	}
	a.log.Info("telegram adapter stopped")
	return nil
}
