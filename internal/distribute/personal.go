package distribute

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"castbot/internal/eventbus"
	"castbot/internal/media"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

var errNoMedia = errors.New("casting has no media")

// personal matches every profile and delivers to the matches on a bounded
// pool. One subscriber's failure never affects another.
func (e *Engine) personal(ctx context.Context, c Casting, opts Options) ([]Attempt, int, int) {
	if e.profiles == nil || e.matcher == nil {
		return nil, 0, 0
	}
	list, err := e.profiles.Profiles(ctx)
	if err != nil {
		e.log.Error("profiles unavailable; personal delivery skipped", logx.String("run", c.RunID), logx.Err(err))
		return nil, 0, 0
	}

	var (
		mu       sync.Mutex
		attempts []Attempt
		g        errgroup.Group
	)
	g.SetLimit(opts.Workers)
	for _, p := range list {
		g.Go(func() error {
			if ctx.Err() != nil || !e.matcher.Matches(ctx, c.Text, p) {
				return nil
			}
			a := e.Deliver(ctx, p.ID, c, opts.Intro)
			mu.Lock()
			attempts = append(attempts, a)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, a := range attempts {
		if !a.OK() {
			failed++
		}
	}
	e.log.Info("personal delivery finished",
		logx.String("run", c.RunID),
		logx.Int("profiles", len(list)),
		logx.Int("matched", len(attempts)),
		logx.Int("failed", failed),
	)
	return attempts, len(attempts), len(list)
}

// Deliver sends c to one subscriber, trying each tier only after the
// previous one failed: forward, then media file with caption, then text.
func (e *Engine) Deliver(ctx context.Context, chatID int64, c Casting, intro string) Attempt {
	start := time.Now()
	to := kit.ChatTarget{ChatID: chatID}
	text := intro + "\n\n" + c.Text
	log := e.log.With(logx.String("run", c.RunID), logx.Int64("chat_id", chatID))

	tiers := []struct {
		tier Tier
		run  func() error
	}{
		{TierForward, func() error { return e.forward(ctx, to, c) }},
		{TierFile, func() error { return e.sendFile(ctx, to, c, text) }},
		{TierText, func() error {
			if err := e.wait(ctx); err != nil {
				return err
			}
			_, err := e.tr.SendText(ctx, to, text, nil)
			return err
		}},
	}

	a := Attempt{ChatID: chatID}
	var errs []error
	for _, t := range tiers {
		err := t.run()
		if err == nil {
			a.Tier, a.Mode = t.tier, t.tier.String()
			break
		}
		if !errors.Is(err, errNoMedia) {
			log.Debug("delivery tier failed", logx.String("tier", t.tier.String()), logx.Err(err))
		}
		errs = append(errs, err)
	}
	a.Took = time.Since(start)
	if a.Tier == TierNone {
		a.Mode = TierNone.String()
		a.Err = errors.Join(errs...)
		log.Warn("personal delivery failed", logx.Err(a.Err))
	} else {
		log.Info("personal delivery", logx.String("tier", a.Mode), logx.Duration("took", a.Took))
	}
	e.publish(eventbus.DeliveryPersonal, c.RunID, a)
	return a
}

func (e *Engine) forward(ctx context.Context, to kit.ChatTarget, c Casting) error {
	refs := c.Event.Refs()
	if len(refs) == 0 {
		return errors.New("nothing to forward")
	}
	// One request, but Telegram counts every forwarded message.
	for range refs {
		if err := e.wait(ctx); err != nil {
			return err
		}
	}
	return e.tr.Forward(ctx, to, refs)
}

// sendFile re-uploads the first media item of the casting. The temp copy is
// removed however the send ends.
func (e *Engine) sendFile(ctx context.Context, to kit.ChatTarget, c Casting, caption string) error {
	m, ok := firstMedia(c.Event)
	if !ok {
		return errNoMedia
	}
	if err := e.wait(ctx); err != nil {
		return err
	}
	path, err := e.tr.Download(ctx, m, e.Options().TempDir)
	if err != nil {
		return err
	}
	defer media.Remove(path, e.log)
	if err := e.wait(ctx); err != nil {
		return err
	}
	_, err = e.tr.SendFile(ctx, to, path, caption, nil)
	return err
}

// firstMedia is the media of the first album item, or of the single message.
func firstMedia(ev kit.Event) (kit.Media, bool) {
	if len(ev.Messages) == 0 {
		return kit.Media{}, false
	}
	m := ev.Messages[0].Media
	if m == nil || m.FileID == "" {
		return kit.Media{}, false
	}
	return *m, true
}
