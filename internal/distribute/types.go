// Package distribute delivers a formatted casting to the broadcast
// destination and, independently, to every subscriber whose profile
// matches it.
package distribute

import (
	"context"
	"time"

	"castbot/internal/profiles"
	kit "castbot/internal/transport"
)

// Casting is everything delivery needs from one pipeline run.
type Casting struct {
	RunID string
	// Event holds the original message(s); albums forward as a whole.
	Event       kit.Event
	SourceTitle string
	RawText     string
	OCRText     string
	// Text is the formatted casting (or the raw text when formatting gave up).
	Text string
	// ImagePath is the sanitized casting photo; empty when there is none.
	ImagePath string
}

// Matcher decides whether a subscriber should get a casting.
type Matcher interface {
	Matches(ctx context.Context, castingText string, p profiles.Profile) bool
}

// Tier is the personal delivery strategy that succeeded.
type Tier int

const (
	TierNone    Tier = iota // every tier failed
	TierForward             // original message(s) forwarded
	TierFile                // media re-uploaded with the text as caption
	TierText                // plain text
)

func (t Tier) String() string {
	switch t {
	case TierForward:
		return "forward"
	case TierFile:
		return "file"
	case TierText:
		return "text"
	default:
		return "none"
	}
}

// Attempt records one destination's outcome. It is only logged and
// published, never stored.
type Attempt struct {
	ChatID int64
	Tier   Tier   // personal path
	Mode   string // broadcast: photo, text; personal: Tier.String()
	Err    error
	Took   time.Duration
}

func (a Attempt) OK() bool { return a.Err == nil }

type Report struct {
	Broadcast *Attempt // nil when the broadcast path is disabled
	Personal  []Attempt
	Matched   int
	Profiles  int
}

const (
	DefaultIntro      = "🎯 Найден подходящий кастинг для вас!"
	captionLimit      = 1024
	defaultWorkers    = 4
	defaultRatePerSec = 20
)

type Options struct {
	Broadcast   bool
	Destination kit.ChatTarget
	// KeepPhotoTriggers are matched as lower-case substrings of the raw and
	// OCR text.
	KeepPhotoTriggers []string

	Personal   bool
	Intro      string
	Workers    int
	RatePerSec float64
	Burst      int
	TempDir    string
}

func (o Options) withDefaults() Options {
	if o.Intro == "" {
		o.Intro = DefaultIntro
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = defaultRatePerSec
	}
	if o.Burst <= 0 {
		o.Burst = o.Workers
	}
	return o
}
