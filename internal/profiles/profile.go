// Package profiles reads subscriber profiles written by the registration
// bot. Profiles are read-only here.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownDriver = errors.New("profiles: unknown driver")

// Profile is the subset of a registration record used for matching.
type Profile struct {
	ID        int64
	Name      string
	Sex       string
	LookType  string
	AgeRange  string
	HeightCM  int
	WeightKG  int
	BodyType  string
	Hair      string
	Cities    string
	Languages string
}

// Height renders HeightCM for prompts; "-" when unknown.
func (p Profile) Height() string {
	if p.HeightCM <= 0 {
		return "-"
	}
	return strconv.Itoa(p.HeightCM)
}

// Source lists the profiles eligible for personalized delivery.
type Source interface {
	Profiles(ctx context.Context) ([]Profile, error)
	Close() error
}

type Config struct {
	Driver string // sqlite, postgres, json
	DSN    string // sqlite path, postgres url or json path
	Table  string // defaults to "users"
}

// Open returns the configured profile source.
func Open(cfg Config) (Source, error) {
	switch d := strings.ToLower(strings.TrimSpace(cfg.Driver)); d {
	case "sqlite", "sqlite3", "postgres", "postgresql":
		return OpenSQL(d, cfg.DSN, cfg.Table)
	case "json", "file":
		return NewJSONFile(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, d)
	}
}

// Static is a fixed in-memory Source.
type Static []Profile

func (s Static) Profiles(context.Context) ([]Profile, error) {
	return append([]Profile(nil), s...), nil
}

func (Static) Close() error { return nil }
