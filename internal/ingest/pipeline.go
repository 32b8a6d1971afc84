// Package ingest filters inbound posts by source and drives each accepted
// one through the casting stages: media, classification, OCR, duplicate
// check, formatting and distribution.
package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"castbot/internal/distribute"
	"castbot/internal/eventbus"
	"castbot/internal/format"
	"castbot/internal/llm"
	"castbot/internal/media"
	"castbot/internal/ocr"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

const unknownSource = "Источник неизвестен"

type MediaFetcher interface {
	Fetch(ctx context.Context, ev kit.Event) (media.Info, bool)
}

type Classifier interface {
	IsCasting(ctx context.Context, text string, img *llm.Image) bool
}

type Deduper interface {
	IsDuplicate(ctx context.Context, text, ocrText string) bool
}

type Formatter interface {
	Run(ctx context.Context, text string, img *llm.Image) format.Result
}

type Distributor interface {
	Distribute(ctx context.Context, c distribute.Casting) distribute.Report
}

// Stages are the collaborators of a run. Media and OCR may be nil.
type Stages struct {
	Media       MediaFetcher
	Classifier  Classifier
	OCR         ocr.Reader
	Dedup       Deduper
	Formatter   Formatter
	Distributor Distributor
}

// Outcome is where a run ended.
type Outcome string

const (
	OutcomeFiltered    Outcome = "filtered"
	OutcomeEmpty       Outcome = "empty"
	OutcomeNotCasting  Outcome = "not_casting"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeDistributed Outcome = "distributed"
)

type Pipeline struct {
	st      Stages
	sources atomic.Pointer[Sources]
	bus     eventbus.Bus
	log     logx.Logger
}

func New(st Stages, sources []Source, bus eventbus.Bus, log logx.Logger) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	if st.OCR == nil {
		st.OCR = ocr.Nop{}
	}
	p := &Pipeline{st: st, bus: bus, log: log.With(logx.Component("ingest"))}
	p.SetSources(sources)
	return p
}

// SetSources replaces the source list for runs that start afterwards.
func (p *Pipeline) SetSources(list []Source) {
	p.sources.Store(NewSources(list))
}

// Accepts applies the source filter to the first message of ev.
func (p *Pipeline) Accepts(ev kit.Event) bool {
	if len(ev.Messages) == 0 {
		return false
	}
	_, ok := p.sources.Load().Match(ev.Primary())
	return ok
}

// Process runs ev under a fresh run id.
func (p *Pipeline) Process(ctx context.Context, ev kit.Event) Outcome {
	return p.ProcessRun(ctx, uuid.NewString(), ev)
}

// ProcessRun executes the stages in their fixed order. Every stage gates
// the next; nothing here returns an error, failures are handled by each
// stage's own policy and logged.
func (p *Pipeline) ProcessRun(ctx context.Context, runID string, ev kit.Event) Outcome {
	start := time.Now()
	primary := ev.Primary()
	log := p.log.With(logx.String("run", runID), logx.Int64("chat_id", primary.ChatID), logx.Int("msg_id", primary.ID))

	if !p.Accepts(ev) {
		topic, _ := Topic(primary)
		log.Debug("not a monitored source", logx.Int("topic", topic))
		return p.ignore(runID, OutcomeFiltered)
	}
	p.bus.Publish(eventbus.Event{Type: eventbus.CastingReceived, Data: eventbus.Stage{RunID: runID}})

	text := ExtractText(ev)

	var (
		photo media.Info
		img   *llm.Image
	)
	if p.st.Media != nil {
		if info, ok := p.st.Media.Fetch(ctx, ev); ok {
			defer media.Remove(info.Path, log)
			loaded, err := media.Load(info.Path)
			if err != nil {
				log.Warn("photo unreadable; continuing without it", logx.Err(err))
			} else {
				photo, img = info, loaded
			}
		}
	}
	if text == "" && img == nil {
		log.Debug("no text and no photo")
		return p.ignore(runID, OutcomeEmpty)
	}

	if !p.st.Classifier.IsCasting(ctx, text, img) {
		log.Debug("not a casting")
		return p.ignore(runID, OutcomeNotCasting)
	}

	var ocrText string
	if img != nil {
		ocrText = ocr.Extract(ctx, p.st.OCR, photo.Path, log)
	}

	if p.st.Dedup.IsDuplicate(ctx, text, ocrText) {
		log.Info("duplicate casting skipped")
		p.bus.Publish(eventbus.Event{Type: eventbus.CastingDuplicate, Data: eventbus.Stage{RunID: runID, Took: time.Since(start)}})
		return OutcomeDuplicate
	}

	res := p.st.Formatter.Run(ctx, text, img)
	p.bus.Publish(eventbus.Event{Type: eventbus.CastingFormatted, Data: eventbus.Formatted{RunID: runID, Outcome: string(res.Outcome), Attempts: res.Attempts}})

	title := primary.ChatTitle
	if title == "" {
		title = unknownSource
	}
	rep := p.st.Distributor.Distribute(ctx, distribute.Casting{
		RunID:       runID,
		Event:       ev,
		SourceTitle: title,
		RawText:     text,
		OCRText:     ocrText,
		Text:        res.Text,
		ImagePath:   photo.Path,
	})

	took := time.Since(start)
	p.bus.Publish(eventbus.Event{Type: eventbus.CastingDone, Data: eventbus.Stage{RunID: runID, Took: took}})
	fields := []logx.Field{logx.String("format", string(res.Outcome)), logx.Int("matched", rep.Matched), logx.Duration("took", took)}
	if rep.Broadcast != nil {
		fields = append(fields, logx.Bool("broadcast_ok", rep.Broadcast.OK()))
	}
	log.Info("casting distributed", fields...)
	return OutcomeDistributed
}

func (p *Pipeline) ignore(runID string, o Outcome) Outcome {
	p.bus.Publish(eventbus.Event{Type: eventbus.CastingIgnored, Data: eventbus.Ignored{RunID: runID, Reason: string(o)}})
	return o
}
