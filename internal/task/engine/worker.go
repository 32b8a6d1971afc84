package engine

import (
	"context"
	"fmt"
	"time"

	"castbot/internal/eventbus"
	logx "castbot/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan queuedTask) {
	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case qt := <-queue:
			s.inFlight.Add(1)
			s.execOne(ctx, qt)
			s.inFlight.Add(-1)
		}
	}
}

func (s *Service) execOne(ctx context.Context, qt queuedTask) {
	start := time.Now()
	delay := max(start.Sub(qt.enqueuedAt), 0)

	s.mu.Lock()
	maxDelay := s.cfg.MaxQueueDelay
	s.mu.Unlock()
	if maxDelay > 0 && delay > maxDelay {
		s.onStale(start, qt.task, delay)
		return
	}

	t := qt.task
	s.bus.Publish(eventbus.Event{Type: EventStarted, Time: start, Data: TaskEvent{ID: t.ID, Name: t.Name, Started: start, QueueDelay: delay}})

	runCtx := ctx
	if qt.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, qt.timeout)
		defer cancel()
	}
	err := s.runGuarded(runCtx, t)

	dur := time.Since(start)
	item := HistoryItem{ID: t.ID, Name: t.Name, Started: start, QueueDelay: delay, Duration: dur}
	if err != nil {
		item.Error = err.Error()
		s.failed.Add(1)
		s.log.Warn("task.failed", logx.String("task", t.Name), logx.String("id", t.ID), logx.Err(err), logx.Duration("dur", dur))
		s.bus.Publish(eventbus.Event{Type: EventFailed, Data: TaskEvent{ID: t.ID, Name: t.Name, Started: start, QueueDelay: delay, Duration: dur, Error: item.Error}})
	} else {
		s.completed.Add(1)
		s.log.Debug("task.completed", logx.String("task", t.Name), logx.String("id", t.ID), logx.Duration("queue_delay", delay), logx.Duration("dur", dur))
		s.bus.Publish(eventbus.Event{Type: EventFinished, Data: TaskEvent{ID: t.ID, Name: t.Name, Started: start, QueueDelay: delay, Duration: dur}})
	}
	s.record(item)
}

// runGuarded turns a task panic into an error so the worker survives.
func (s *Service) runGuarded(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.log.Error("task.panic", logx.String("task", t.Name), logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 16)))
		}
	}()
	return t.Run(ctx)
}
