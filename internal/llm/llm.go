// Package llm talks to hosted language models. Callers build a Request and
// get back the raw text answer; interpreting it is their business.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("llm: client misconfigured")
	ErrNoAnswer      = errors.New("llm: empty response")
)

// Image is an inline picture sent alongside the prompt.
type Image struct {
	Data []byte
	MIME string // image/jpeg when empty
}

func (i *Image) mime() string {
	if i == nil || strings.TrimSpace(i.MIME) == "" {
		return "image/jpeg"
	}
	return i.MIME
}

type Request struct {
	Model       string
	System      string
	Prompt      string
	Image       *Image
	MaxTokens   int
	Temperature *float32
}

// Completer is one round trip to a model.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

func Temperature(v float32) *float32 { return &v }

// Config selects a provider.
type Config struct {
	Provider string // "openai" (default) or "gemini"
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the configured Completer.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch p := strings.ToLower(strings.TrimSpace(cfg.Provider)); p {
	case "", "openai":
		return NewOpenAI(cfg)
	case "gemini", "genai":
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", p)
	}
}
