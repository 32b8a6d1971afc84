// Package format rewrites raw casting text into the canonical template with
// a bounded number of model calls.
package format

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"castbot/internal/llm"
	logx "castbot/pkg/logx"
)

const (
	DefaultModel       = "gpt-4o"
	DefaultMaxAttempts = 10

	maxTokens = 1000
)

type Options struct {
	Model          string
	MaxAttempts    int
	RefusalMarkers []string
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if len(o.RefusalMarkers) == 0 {
		o.RefusalMarkers = DefaultRefusalMarkers
	}
	markers := make([]string, 0, len(o.RefusalMarkers))
	for _, m := range o.RefusalMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	o.RefusalMarkers = markers
	return o
}

// Outcome describes how a Format call ended.
type Outcome string

const (
	OutcomeTemplate  Outcome = "template"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeError     Outcome = "error"
)

type Result struct {
	Text     string
	Outcome  Outcome
	Attempts int
}

type Formatter struct {
	llm  llm.Completer
	log  logx.Logger
	opts atomic.Pointer[Options]
}

func New(c llm.Completer, opts Options, log logx.Logger) *Formatter {
	if log.IsZero() {
		log = logx.Nop()
	}
	f := &Formatter{llm: c, log: log}
	f.SetOptions(opts)
	return f
}

// SetOptions swaps model, attempt budget and markers for subsequent calls.
func (f *Formatter) SetOptions(opts Options) {
	o := opts.withDefaults()
	f.opts.Store(&o)
}

// Format returns the template, or text itself when the model errors or keeps
// refusing.
func (f *Formatter) Format(ctx context.Context, text string, img *llm.Image) string {
	return f.Run(ctx, text, img).Text
}

// Run is Format with the attempt count and outcome exposed.
func (f *Formatter) Run(ctx context.Context, text string, img *llm.Image) Result {
	opts := *f.opts.Load()
	req := llm.Request{
		Model:     opts.Model,
		Prompt:    fmt.Sprintf(templatePrompt, text),
		Image:     img,
		MaxTokens: maxTokens,
	}

	start := time.Now()
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		answer, err := f.llm.Complete(ctx, req)
		if err != nil {
			f.log.Warn("template formatting failed; using original text",
				logx.Int("attempt", attempt), logx.Err(err))
			return Result{Text: text, Outcome: OutcomeError, Attempts: attempt}
		}
		answer = strings.TrimSpace(answer)
		if answer != "" && !refused(answer, opts.RefusalMarkers) {
			f.log.Debug("casting formatted", logx.Int("attempt", attempt), logx.Duration("took", time.Since(start)))
			return Result{Text: answer, Outcome: OutcomeTemplate, Attempts: attempt}
		}
		f.log.Debug("empty or refused template; retrying", logx.Int("attempt", attempt))
	}

	f.log.Warn("template attempts exhausted; using original text", logx.Int("attempts", opts.MaxAttempts))
	return Result{Text: text, Outcome: OutcomeExhausted, Attempts: opts.MaxAttempts}
}

func refused(answer string, markers []string) bool {
	a := strings.ToLower(answer)
	for _, m := range markers {
		if strings.Contains(a, m) {
			return true
		}
	}
	return false
}
