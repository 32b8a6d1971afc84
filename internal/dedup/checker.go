package dedup

import (
	"context"
	"sync/atomic"

	"castbot/internal/storage"
	logx "castbot/pkg/logx"
	"castbot/pkg/textnorm"
)

const (
	DefaultThreshold   = 0.90
	DefaultHistorySize = 20

	separator = " | "
)

// Options are the tunables of a Checker. Zero values select the defaults.
type Options struct {
	Threshold   float64
	HistorySize int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 || o.Threshold > 1 {
		o.Threshold = DefaultThreshold
	}
	if o.HistorySize <= 0 {
		o.HistorySize = DefaultHistorySize
	}
	return o
}

// Reason explains a Verdict.
type Reason string

const (
	ReasonNew     Reason = "new"
	ReasonExact   Reason = "exact"
	ReasonSimilar Reason = "similar"
)

type Verdict struct {
	Duplicate   bool
	Reason      Reason
	Fingerprint string
	Match       string  // stored entry that caused the verdict
	Score       float64 // similarity with Match; 1 for exact
}

// Checker is safe for concurrent use; cross-process safety comes from the
// HistoryStore.
type Checker struct {
	store storage.HistoryStore
	log   logx.Logger
	opts  atomic.Pointer[Options]
}

func New(store storage.HistoryStore, opts Options, log logx.Logger) *Checker {
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Checker{store: store, log: log}
	c.SetOptions(opts)
	return c
}

// SetOptions swaps the tunables at runtime. The next recorded fingerprint
// truncates the history to the new size.
func (c *Checker) SetOptions(opts Options) {
	o := opts.withDefaults()
	c.opts.Store(&o)
}

func (c *Checker) Options() Options { return *c.opts.Load() }

// Fingerprint builds the comparison key for a casting.
func Fingerprint(text, ocrText string) string {
	return textnorm.Normalize(text) + separator + textnorm.Normalize(ocrText)
}

// IsDuplicate reports whether the casting matches the history and records it
// when it does not. Store failures are logged and reported as "not a
// duplicate" so content is never lost to an I/O fault.
func (c *Checker) IsDuplicate(ctx context.Context, text, ocrText string) bool {
	v, err := c.Check(ctx, text, ocrText)
	if err != nil {
		c.log.Error("dedup store failed; treating casting as new", logx.Err(err))
		return false
	}
	if v.Duplicate {
		c.log.Debug("duplicate casting",
			logx.String("reason", string(v.Reason)),
			logx.Float64("score", v.Score),
		)
	}
	return v.Duplicate
}

// Check is IsDuplicate with the full verdict and the store error exposed.
func (c *Checker) Check(ctx context.Context, text, ocrText string) (Verdict, error) {
	fp := Fingerprint(text, ocrText)
	opts := c.Options()

	var v Verdict
	err := c.store.Update(ctx, func(history []string) ([]string, bool) {
		v = evaluate(history, fp, opts.Threshold)
		if v.Duplicate {
			return history, false
		}
		return appendBounded(history, fp, opts.HistorySize), true
	})
	if err != nil {
		return Verdict{Fingerprint: fp}, err
	}
	return v, nil
}

// Peek evaluates the casting without recording it.
func (c *Checker) Peek(ctx context.Context, text, ocrText string) (Verdict, error) {
	fp := Fingerprint(text, ocrText)
	history, err := c.store.Load(ctx)
	if err != nil {
		return Verdict{Fingerprint: fp}, err
	}
	return evaluate(history, fp, c.Options().Threshold), nil
}

// History returns the stored fingerprints, oldest first.
func (c *Checker) History(ctx context.Context) ([]string, error) {
	return c.store.Load(ctx)
}

func evaluate(history []string, fp string, threshold float64) Verdict {
	for _, h := range history {
		if h == fp {
			return Verdict{Duplicate: true, Reason: ReasonExact, Fingerprint: fp, Match: h, Score: 1}
		}
	}
	best := Verdict{Reason: ReasonNew, Fingerprint: fp}
	for _, h := range history {
		score := Similarity(fp, h)
		if score >= threshold && score > best.Score {
			best = Verdict{Duplicate: true, Reason: ReasonSimilar, Fingerprint: fp, Match: h, Score: score}
		}
	}
	return best
}

func appendBounded(history []string, fp string, size int) []string {
	next := append(append(make([]string, 0, len(history)+1), history...), fp)
	if len(next) > size {
		next = next[len(next)-size:]
	}
	return next
}
