// Package ops serves a small local HTTP endpoint for operators: liveness,
// pipeline counters and the stored duplicate fingerprints.
package ops

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/pprof"

	"castbot/internal/task/engine"
	logx "castbot/pkg/logx"
)

type PoolStats interface {
	Snapshot() engine.Snapshot
}

type HistoryReader interface {
	History(ctx context.Context) ([]string, error)
}

// Deps are the read-only views the endpoint exposes. Any may be nil.
type Deps struct {
	Stats   *Collector
	Pool    PoolStats
	History HistoryReader
	// Health returns the first fatal runtime error, nil while healthy.
	Health     func() error
	BusDropped func() uint64
	// Pprof mounts the runtime profiles under /debug/pprof.
	Pprof bool
}

type Server struct {
	app  *fiber.App
	deps Deps
	log  logx.Logger
}

func NewServer(deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			AppName:               "castbot",
			ReadTimeout:           5 * time.Second,
			WriteTimeout:          5 * time.Second,
		}),
		deps: deps,
		log:  log.With(logx.Component("ops")),
	}
	if deps.Pprof {
		s.app.Use(pprof.New())
	}
	s.app.Get("/healthz", s.health)
	s.app.Get("/stats", s.stats)
	s.app.Get("/dedup", s.dedup)
	return s
}

// App exposes the router for tests.
func (s *Server) App() *fiber.App { return s.app }

// Serve listens on addr until ctx ends.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info("ops endpoint listening", logx.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("ops shutdown", logx.Err(err))
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *Server) health(c *fiber.Ctx) error {
	if s.deps.Health != nil {
		if err := s.deps.Health(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) stats(c *fiber.Ctx) error {
	out := fiber.Map{}
	if s.deps.Stats != nil {
		out["pipeline"] = s.deps.Stats.Snapshot()
	}
	if s.deps.Pool != nil {
		snap := s.deps.Pool.Snapshot()
		out["pool"] = fiber.Map{
			"running":   snap.Running,
			"workers":   snap.Workers,
			"queue_len": snap.QueueLen,
			"queue_cap": snap.QueueCap,
			"in_flight": snap.InFlight,
			"completed": snap.Completed,
			"failed":    snap.Failed,
			"dropped":   snap.Dropped,
		}
	}
	if s.deps.BusDropped != nil {
		out["bus_dropped"] = s.deps.BusDropped()
	}
	return c.JSON(out)
}

func (s *Server) dedup(c *fiber.Ctx) error {
	if s.deps.History == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "dedup disabled"})
	}
	h, err := s.deps.History.History(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	limit := c.QueryInt("limit", len(h))
	if limit >= 0 && limit < len(h) {
		h = h[len(h)-limit:]
	}
	return c.JSON(fiber.Map{"count": len(h), "fingerprints": h})
}
