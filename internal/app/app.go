// Package app assembles the casting bot from its configuration and owns the
// lifecycle of every long-running component.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"castbot/internal/classify"
	"castbot/internal/config"
	"castbot/internal/dedup"
	"castbot/internal/distribute"
	"castbot/internal/eventbus"
	"castbot/internal/format"
	"castbot/internal/ingest"
	"castbot/internal/llm"
	"castbot/internal/media"
	"castbot/internal/ocr"
	"castbot/internal/ops"
	"castbot/internal/profiles"
	rtsup "castbot/internal/runtime/supervisor"
	"castbot/internal/storage"
	"castbot/internal/task/engine"
	kit "castbot/internal/transport"
	telegram "castbot/internal/transport/telegram/adapter"
	logx "castbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	adapter  *telegram.Adapter
	store    storage.HistoryStore
	dedup    *dedup.Checker
	format   *format.Formatter
	dist     *distribute.Engine
	profiles profiles.Source
	pool     *engine.Service
	pipeline *ingest.Pipeline
	sweeper  *media.Sweeper
	stats    *ops.Collector
	ops      *ops.Server

	events chan kit.Event
}

// dedupOff is used when the history store is disabled: every casting is new.
type dedupOff struct{}

func (dedupOff) IsDuplicate(context.Context, string, string) bool { return false }

// New loads cfgPath and builds every component. Nothing runs until Start.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(mapLogConfig(cfg), nil)
	a := &App{cfgm: cfgm, logs: logs, log: log.With(logx.Component("app")), bus: eventbus.New(), events: make(chan kit.Event, 256)}
	if err := a.build(ctx, cfg, log); err != nil {
		a.closeStores()
		_ = logs.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config, log logx.Logger) error {
	ad, err := telegram.New(mapAdapterConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	a.adapter = ad
	a.logs.SetNotifier(kit.ChatNotifier{Adapter: ad, To: logTarget(cfg)})

	if err := os.MkdirAll(cfg.Media.TempDir, 0o755); err != nil {
		return fmt.Errorf("media.temp_dir: %w", err)
	}

	var dup ingest.Deduper = dedupOff{}
	store, err := storage.Open(mapStorageConfig(cfg), log.With(logx.Component("storage")))
	switch {
	case errors.Is(err, storage.ErrDisabled):
		a.log.Warn("duplicate check disabled; every casting is treated as new")
	case err != nil:
		return fmt.Errorf("dedup store: %w", err)
	default:
		a.store = store
		a.dedup = dedup.New(store, mapDedupOptions(cfg), log.With(logx.Component("dedup")))
		dup = a.dedup
		a.log.Info("dedup store ready", logx.String("driver", cfg.Dedup.Driver))
	}

	completer, err := llm.New(ctx, mapLLMConfig(cfg))
	if err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	gw := classify.New(completer, classify.Options{
		CastingModel: cfg.LLM.CastingModel,
		MatchModel:   cfg.LLM.MatchModel,
	}, log.With(logx.Component("classify")))
	a.format = format.New(completer, mapFormatOptions(cfg), log.With(logx.Component("format")))

	if cfg.Profiles.Driver != "" && cfg.Profiles.DSN != "" {
		src, err := profiles.Open(mapProfilesConfig(cfg))
		if err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
		a.profiles = src
	}
	a.dist = distribute.New(ad, gw, a.profiles, mapDistributeOptions(cfg), a.bus, log)

	var reader ocr.Reader = ocr.Nop{}
	if cfg.OCR.Enabled {
		t := ocr.NewTesseract(mapOCRConfig(cfg), log)
		if !t.Available() {
			a.log.Warn("ocr enabled but command not found; image text will be empty", logx.String("command", cfg.OCR.Command))
		}
		reader = t
	}

	a.pool = engine.New(mapEngineConfig(cfg), log, a.bus)
	a.pipeline = ingest.New(ingest.Stages{
		Media:       media.NewFetcher(ad, mapMediaOptions(cfg), log),
		Classifier:  gw,
		OCR:         reader,
		Dedup:       dup,
		Formatter:   a.format,
		Distributor: a.dist,
	}, mapSources(cfg), a.bus, log)

	if cfg.Media.SweepEnabled() {
		sw, err := media.NewSweeper(cfg.Media.TempDir, cfg.Media.SweepSchedule, config.Duration(cfg.Media.SweepMaxAge, time.Hour), log)
		if err != nil {
			return fmt.Errorf("media.sweep_schedule: %w", err)
		}
		a.sweeper = sw
	}

	a.stats = ops.NewCollector()
	if cfg.Ops.Enabled {
		deps := ops.Deps{
			Stats:      a.stats,
			Pool:       a.pool,
			Health:     a.Err,
			BusDropped: a.bus.Dropped,
			Pprof:      cfg.Ops.Pprof,
		}
		if a.dedup != nil {
			deps.History = a.dedup
		}
		a.ops = ops.NewServer(deps, log)
	}
	return nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	a.cfgm.SetLogger(a.log.With(logx.Component("config")))

	a.pool.Start(a.sup.Context())
	if err := a.adapter.Start(a.sup.Context(), a.events); err != nil {
		return err
	}

	a.sup.Go0("ingest.dispatch", func(c context.Context) {
		a.pipeline.Dispatch(c, a.events, a.pool)
	})
	a.sup.Go0("ops.stats", func(c context.Context) {
		a.stats.Run(c, a.bus)
	})
	if a.ops != nil {
		addr := a.cfgm.Get().Ops.Addr
		a.sup.GoRestart("ops.http", func(c context.Context) error {
			return a.ops.Serve(c, addr)
		}, rtsup.WithRestartBackoff(time.Second, 30*time.Second))
	}
	if a.sweeper != nil {
		a.sweeper.Start()
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	cfg := a.cfgm.Get()
	a.log.Info("app started",
		logx.Int("sources", len(cfg.Sources)),
		logx.Bool("broadcast", cfg.Broadcast.Enabled),
		logx.Bool("personal", cfg.Personal.Enabled),
		logx.Bool("ocr", cfg.OCR.Enabled),
	)
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		a.closeStores()
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	// step runs one shutdown step bounded by max and by the caller's deadline.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			if rem := time.Until(dl); rem < max {
				max = rem
			}
		}
		if max <= 0 {
			a.log.Warn("stop step skipped; deadline reached", logx.String("name", name))
			return
		}
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("adapter", 3*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("pipeline", 5*time.Second, func(c context.Context) error { a.pool.Stop(c); return nil })
	if a.sweeper != nil {
		step("sweeper", time.Second, func(c context.Context) error { a.sweeper.Stop(c); return nil })
	}
	step("stores", time.Second, func(context.Context) error { a.closeStores(); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.log.Info("stopped")
	return a.logs.Close()
}

func (a *App) closeStores() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("dedup store close", logx.Err(err))
		}
		a.store = nil
	}
	if a.profiles != nil {
		if err := a.profiles.Close(); err != nil {
			a.log.Warn("profiles close", logx.Err(err))
		}
		a.profiles = nil
	}
}

// Run starts the app and blocks until ctx ends or a fatal error cancels it.
func (a *App) Run(ctx context.Context, stopTimeout time.Duration) error {
	if err := a.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = a.Stop(stopCtx)
		return err
	}
	<-a.Done()
	fatal := a.Err()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := a.Stop(stopCtx); err != nil && fatal == nil {
		return err
	}
	return fatal
}
