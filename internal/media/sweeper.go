package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "castbot/pkg/logx"
)

// TempPrefix marks files created by the transport download path.
const TempPrefix = "castbot-"

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Sweeper periodically deletes temp media older than MaxAge. Runs normally
// clean up after themselves; this catches files orphaned by a crash or a
// cancelled task.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	log    logx.Logger
	c      *cron.Cron
}

func NewSweeper(dir, schedule string, maxAge time.Duration, log logx.Logger) (*Sweeper, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	s := &Sweeper{dir: dir, maxAge: maxAge, log: log.With(logx.Component("media.sweeper"))}
	s.c = cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.c.Schedule(sched, cron.FuncJob(func() { s.Sweep(time.Now()) }))
	return s, nil
}

func (s *Sweeper) Start() { s.c.Start() }

// Stop waits for a running sweep up to ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Sweep removes stale temp files and returns how many were deleted.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("sweep: read dir", logx.String("dir", s.dir), logx.Err(err))
		}
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		fi, err := e.Info()
		if err != nil || now.Sub(fi.ModTime()) < s.maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("orphaned temp media removed", logx.Int("count", removed))
	}
	return removed
}
