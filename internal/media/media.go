// Package media fetches casting images to a temp directory, rejects link
// preview thumbnails and sweeps files left behind by abandoned runs.
package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	"castbot/internal/llm"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

var ErrPreview = errors.New("media: preview thumbnail")

const (
	DefaultMinBytes = 15000
	DefaultMinSide  = 150
)

// Downloader is the part of transport.Adapter media fetching needs.
type Downloader interface {
	Download(ctx context.Context, m kit.Media, dir string) (string, error)
}

type Options struct {
	Dir      string
	MinBytes int64
	MinSide  int
}

func (o Options) withDefaults() Options {
	if o.Dir == "" {
		o.Dir = os.TempDir()
	}
	if o.MinBytes <= 0 {
		o.MinBytes = DefaultMinBytes
	}
	if o.MinSide <= 0 {
		o.MinSide = DefaultMinSide
	}
	return o
}

// Info describes an accepted image.
type Info struct {
	Path   string
	Size   int64
	Width  int
	Height int
}

type Fetcher struct {
	dl   Downloader
	opts Options
	log  logx.Logger
}

func NewFetcher(dl Downloader, opts Options, log logx.Logger) *Fetcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Fetcher{dl: dl, opts: opts.withDefaults(), log: log.With(logx.Component("media"))}
}

func (f *Fetcher) Dir() string { return f.opts.Dir }

// FirstPhoto returns the first photo of the event, if any.
func FirstPhoto(ev kit.Event) (kit.Media, bool) {
	for _, m := range ev.Messages {
		if m.Media != nil && m.Media.Kind == kit.MediaPhoto {
			return *m.Media, true
		}
	}
	return kit.Media{}, false
}

// Fetch downloads the first photo of ev and keeps it only if it passes the
// preview guard. ok=false means there is no usable image; nothing is left on
// disk in that case. The caller removes Info.Path when done.
func (f *Fetcher) Fetch(ctx context.Context, ev kit.Event) (Info, bool) {
	photo, found := FirstPhoto(ev)
	if !found {
		return Info{}, false
	}
	if err := os.MkdirAll(f.opts.Dir, 0o755); err != nil {
		f.log.Warn("temp dir unavailable", logx.String("dir", f.opts.Dir), logx.Err(err))
		return Info{}, false
	}
	path, err := f.dl.Download(ctx, photo, f.opts.Dir)
	if err != nil {
		f.log.Warn("photo download failed", logx.Err(err))
		return Info{}, false
	}
	info, err := Inspect(path, f.opts.MinBytes, f.opts.MinSide)
	if err != nil {
		Remove(path, f.log)
		f.log.Info("photo discarded", logx.Err(err), logx.Int64("bytes", info.Size), logx.Int("w", info.Width), logx.Int("h", info.Height))
		return Info{}, false
	}
	return info, true
}

// Inspect applies the preview guard: files under minBytes, files with both
// sides at most minSide and undecodable files are rejected with ErrPreview.
func Inspect(path string, minBytes int64, minSide int) (Info, error) {
	info := Info{Path: path}
	st, err := os.Stat(path)
	if err != nil {
		return info, err
	}
	info.Size = st.Size()

	fh, err := os.Open(path)
	if err != nil {
		return info, err
	}
	cfg, _, decErr := image.DecodeConfig(fh)
	_ = fh.Close()
	if decErr == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}

	if info.Size < minBytes || (info.Width <= minSide && info.Height <= minSide) {
		return info, fmt.Errorf("%w (%dx%d, %d bytes)", ErrPreview, info.Width, info.Height, info.Size)
	}
	return info, nil
}

// Load reads an accepted image for the LLM.
func Load(path string) (*llm.Image, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &llm.Image{Data: b, MIME: http.DetectContentType(b)}, nil
}

// Remove deletes a temp file; a missing file is fine.
func Remove(path string, log logx.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("temp file not removed", logx.String("path", path), logx.Err(err))
	}
}
