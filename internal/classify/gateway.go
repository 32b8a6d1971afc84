// Package classify asks a language model two yes/no questions: is a post a
// casting call, and does a casting fit a subscriber. Both fail closed.
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"castbot/internal/llm"
	"castbot/internal/profiles"
	logx "castbot/pkg/logx"
)

const (
	DefaultCastingModel = "gpt-4o-mini"
	DefaultMatchModel   = "gpt-4o"

	castingMaxTokens = 5
	matchTemperature = 0.3
)

type Options struct {
	CastingModel string
	MatchModel   string
}

// Gateway is stateless and safe for concurrent use.
type Gateway struct {
	llm          llm.Completer
	log          logx.Logger
	castingModel string
	matchModel   string
}

func New(c llm.Completer, opts Options, log logx.Logger) *Gateway {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.CastingModel == "" {
		opts.CastingModel = DefaultCastingModel
	}
	if opts.MatchModel == "" {
		opts.MatchModel = DefaultMatchModel
	}
	return &Gateway{llm: c, log: log, castingModel: opts.CastingModel, matchModel: opts.MatchModel}
}

// IsCasting reports whether text (plus any text on img) announces a casting.
// Any failure or an answer without "да"/"yes" is a no.
func (g *Gateway) IsCasting(ctx context.Context, text string, img *llm.Image) bool {
	start := time.Now()
	answer, err := g.llm.Complete(ctx, llm.Request{
		Model:     g.castingModel,
		Prompt:    fmt.Sprintf(castingPrompt, text),
		Image:     img,
		MaxTokens: castingMaxTokens,
	})
	if err != nil {
		g.log.Warn("casting classification failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return false
	}
	yes := isAffirmative(answer)
	g.log.Debug("casting classified",
		logx.Bool("casting", yes),
		logx.String("answer", answer),
		logx.Duration("took", time.Since(start)),
	)
	return yes
}

// Matches reports whether castingText suits p. Missing requirements never
// reject and partial overlap counts; anything but a clear "да"/"yes" is a no.
func (g *Gateway) Matches(ctx context.Context, castingText string, p profiles.Profile) bool {
	answer, err := g.llm.Complete(ctx, llm.Request{
		Model:  g.matchModel,
		System: matchSystem,
		Prompt: fmt.Sprintf(matchPrompt, castingText,
			dash(p.Sex), dash(p.LookType), dash(p.AgeRange), p.Height(), dash(p.BodyType), dash(p.Cities)),
		Temperature: llm.Temperature(matchTemperature),
	})
	if err != nil {
		g.log.Warn("profile match failed", logx.Int64("subscriber", p.ID), logx.Err(err))
		return false
	}
	switch verdict := strings.ToLower(strings.TrimSpace(answer)); {
	case strings.HasPrefix(verdict, "да"), strings.HasPrefix(verdict, "yes"):
		return true
	case strings.HasPrefix(verdict, "нет"), strings.HasPrefix(verdict, "no"):
		return false
	default:
		g.log.Warn("unexpected match answer", logx.Int64("subscriber", p.ID), logx.String("answer", answer))
		return false
	}
}

func isAffirmative(answer string) bool {
	a := strings.ToLower(answer)
	return strings.Contains(a, "да") || strings.Contains(a, "yes")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
