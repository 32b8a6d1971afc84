package distribute

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"castbot/internal/profiles"
	kit "castbot/internal/transport"
)

type sent struct {
	Op      string // text, photo, file, forward
	To      int64
	Thread  int
	Body    string
	Refs    []kit.MessageRef
	Parse   string
	FileIDs []string
}

// fakeAdapter records every call. fail maps "op" or "op:chatID" to an error.
type fakeAdapter struct {
	mu         sync.Mutex
	sent       []sent
	fail       map[string]error
	downloads  []string
	downloaded []string
	seq        int
}

func newFake() *fakeAdapter { return &fakeAdapter{fail: map[string]error{}} }

func (f *fakeAdapter) failOn(op string, chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := op
	if chatID != 0 {
		key += ":" + strconv.FormatInt(chatID, 10)
	}
	f.fail[key] = errors.New(key + " failed")
}

func (f *fakeAdapter) errFor(op string, chatID int64) error {
	if err := f.fail[op]; err != nil {
		return err
	}
	return f.fail[op+":"+strconv.FormatInt(chatID, 10)]
}

func (f *fakeAdapter) record(s sent) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor(s.Op, s.To); err != nil {
		return kit.MessageRef{}, err
	}
	f.seq++
	f.sent = append(f.sent, s)
	return kit.MessageRef{ChatID: s.To, MessageID: f.seq}, nil
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Event) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                    { return nil }

func parse(opt *kit.SendOptions) string {
	if opt == nil {
		return ""
	}
	return opt.ParseMode
}

func (f *fakeAdapter) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return f.record(sent{Op: "text", To: to.ChatID, Thread: to.ThreadID, Body: text, Parse: parse(opt)})
}

func (f *fakeAdapter) SendPhoto(_ context.Context, to kit.ChatTarget, path, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return f.record(sent{Op: "photo", To: to.ChatID, Thread: to.ThreadID, Body: caption, Parse: parse(opt)})
}

func (f *fakeAdapter) SendFile(_ context.Context, to kit.ChatTarget, path, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if _, err := os.Stat(path); err != nil {
		return kit.MessageRef{}, err
	}
	return f.record(sent{Op: "file", To: to.ChatID, Body: caption, Parse: parse(opt)})
}

func (f *fakeAdapter) Forward(_ context.Context, to kit.ChatTarget, msgs []kit.MessageRef) error {
	_, err := f.record(sent{Op: "forward", To: to.ChatID, Refs: msgs})
	return err
}

func (f *fakeAdapter) Download(_ context.Context, m kit.Media, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloaded = append(f.downloaded, m.FileID)
	if err := f.fail["download"]; err != nil {
		return "", err
	}
	p := filepath.Join(dir, "castbot-"+m.FileID+".jpg")
	if err := os.WriteFile(p, []byte("jpeg"), 0o600); err != nil {
		return "", err
	}
	f.downloads = append(f.downloads, p)
	return p, nil
}

func (f *fakeAdapter) sentTo(chatID int64) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.To == chatID {
			out = append(out, s)
		}
	}
	return out
}

// matchIDs matches only the listed profile ids.
type matchIDs map[int64]bool

func (m matchIDs) Matches(_ context.Context, _ string, p profiles.Profile) bool { return m[p.ID] }
