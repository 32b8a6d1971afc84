package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	kit "castbot/internal/transport"
)

// call runs one Bot API request under the per-call timeout. telebot calls
// are not context-aware, so on timeout the request is abandoned and ends on
// the HTTP client deadline.
func (a *Adapter) call(ctx context.Context, op string, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram %s: %w", op, err)
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram %s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram %s: %w", op, ctx.Err())
	}
}

func sendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{ThreadID: to.ThreadID}
	if opt != nil {
		so.ParseMode = opt.ParseMode
		so.DisableWebPagePreview = opt.DisablePreview
	}
	return so
}

func (a *Adapter) send(ctx context.Context, op string, to kit.ChatTarget, what any, opt *kit.SendOptions) (kit.MessageRef, error) {
	var msg *tele.Message
	err := a.call(ctx, op, func() error {
		var err error
		msg, err = a.bot.Send(&tele.Chat{ID: to.ChatID}, what, sendOptions(to, opt))
		return err
	})
	if err != nil {
		return kit.MessageRef{}, err
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

// SendText splits text over the message limit and returns the first part.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	parseMode := ""
	if opt != nil {
		parseMode = opt.ParseMode
	}
	var first kit.MessageRef
	for i, chunk := range splitText(text, textLimit, parseMode) {
		ref, err := a.send(ctx, "sendMessage", to, chunk, opt)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = ref
		}
	}
	return first, nil
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, path, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	return a.send(ctx, "sendPhoto", to, &tele.Photo{File: tele.FromDisk(path), Caption: caption}, opt)
}

func (a *Adapter) SendFile(ctx context.Context, to kit.ChatTarget, path, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if isImagePath(path) {
		return a.SendPhoto(ctx, to, path, caption, opt)
	}
	doc := &tele.Document{File: tele.FromDisk(path), FileName: filepath.Base(path), Caption: caption}
	return a.send(ctx, "sendDocument", to, doc, opt)
}

// Forward sends msgs to to with one forwardMessages request per source chat,
// so an album arrives as an album. telebot's ForwardMany points chat_id at
// the source chat, hence the raw call.
func (a *Adapter) Forward(ctx context.Context, to kit.ChatTarget, msgs []kit.MessageRef) error {
	for _, batch := range forwardBatches(msgs) {
		params := map[string]any{
			"chat_id":      to.ChatID,
			"from_chat_id": batch.from,
			"message_ids":  batch.ids,
		}
		if to.ThreadID != 0 {
			params["message_thread_id"] = to.ThreadID
		}
		if err := a.call(ctx, "forwardMessages", func() error {
			_, err := a.bot.Raw("forwardMessages", params)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// forwardMessages takes at most this many ids per request.
const forwardLimit = 100

type forwardBatch struct {
	from int64
	ids  []int
}

// forwardBatches groups refs by source chat in first-seen order; ids are
// ascending within a batch as the Bot API requires.
func forwardBatches(refs []kit.MessageRef) []forwardBatch {
	var out []forwardBatch
	last := map[int64]int{}
	for _, r := range refs {
		i, ok := last[r.ChatID]
		if !ok || len(out[i].ids) == forwardLimit {
			out = append(out, forwardBatch{from: r.ChatID})
			i = len(out) - 1
			last[r.ChatID] = i
		}
		out[i].ids = append(out[i].ids, r.MessageID)
	}
	for _, b := range out {
		slices.Sort(b.ids)
	}
	return out
}

func (a *Adapter) Download(ctx context.Context, m kit.Media, dir string) (string, error) {
	if m.FileID == "" {
		return "", fmt.Errorf("telegram download: empty file id")
	}
	f, err := os.CreateTemp(dir, "castbot-*"+mediaExt(m))
	if err != nil {
		return "", err
	}
	path := f.Name()
	_ = f.Close()

	// A download abandoned on timeout may still write path later; it cleans
	// up after itself once it sees abandoned.
	var abandoned atomic.Bool
	if err := a.call(ctx, "getFile", func() error {
		err := a.bot.Download(&tele.File{FileID: m.FileID}, path)
		if abandoned.Load() {
			_ = os.Remove(path)
		}
		return err
	}); err != nil {
		abandoned.Store(true)
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func mediaExt(m kit.Media) string {
	if ext := filepath.Ext(m.FileName); ext != "" {
		return ext
	}
	switch m.Kind {
	case kit.MediaPhoto:
		return ".jpg"
	case kit.MediaVideo:
		return ".mp4"
	default:
		return ".bin"
	}
}

func isImagePath(path string) bool {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}
