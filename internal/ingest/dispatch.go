package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"castbot/internal/task/engine"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

// Submitter queues a task; *engine.Service implements it.
type Submitter interface {
	Enqueue(t engine.Task) error
}

// Dispatch feeds inbound events to the task pool, one task per accepted
// event, until ctx ends or in is closed. A full queue drops the event.
func (p *Pipeline) Dispatch(ctx context.Context, in <-chan kit.Event, pool Submitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if !p.Accepts(ev) {
				continue
			}
			runID := uuid.NewString()
			err := pool.Enqueue(engine.Task{
				ID:   runID,
				Name: "casting",
				Run: func(ctx context.Context) error {
					p.ProcessRun(ctx, runID, ev)
					return ctx.Err()
				},
			})
			if err != nil && !errors.Is(err, engine.ErrQueueFull) {
				p.log.Warn("casting not queued", logx.String("run", runID), logx.Err(err))
			}
		}
	}
}
