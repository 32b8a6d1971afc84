package distribute

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"castbot/internal/eventbus"
	"castbot/internal/htmlsafe"
	kit "castbot/internal/transport"
	logx "castbot/pkg/logx"
)

// BroadcastBody is the HTML post: the sanitized casting followed by the
// quoted source attribution.
func BroadcastBody(text, platform, sourceTitle string) string {
	return htmlsafe.Sanitize(text) + "\n\n" + htmlsafe.Blockquote(SourceLabel(platform)+htmlsafe.Escape(sourceTitle))
}

// SourceLabel prefixes the source title, naming the platform when known.
func SourceLabel(platform string) string {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return "Источник: "
	}
	return "Источник(" + htmlsafe.Escape(platform) + "): "
}

// KeepPhoto reports whether any trigger phrase occurs in the raw or OCR text.
func KeepPhoto(raw, ocr string, triggers []string) bool {
	raw, ocr = strings.ToLower(raw), strings.ToLower(ocr)
	for _, t := range triggers {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(raw, t) || strings.Contains(ocr, t) {
			return true
		}
	}
	return false
}

// fitsCaption measures the caption the way Telegram does, after markup.
func fitsCaption(body string) bool {
	return utf8.RuneCountInString(htmlsafe.Text(body)) <= captionLimit
}

// Broadcast posts the casting to the destination once. The photo form is
// used only when a trigger phrase asks for it, a sanitized image exists and
// the caption fits; otherwise the post is text.
func (e *Engine) Broadcast(ctx context.Context, c Casting) Attempt {
	opts := e.Options()
	start := time.Now()
	body := BroadcastBody(c.Text, c.Event.Platform(), c.SourceTitle)
	so := &kit.SendOptions{ParseMode: kit.ParseModeHTML}

	a := Attempt{ChatID: opts.Destination.ChatID, Mode: "text"}
	photo := c.ImagePath != "" && KeepPhoto(c.RawText, c.OCRText, opts.KeepPhotoTriggers)
	if photo && !fitsCaption(body) {
		e.log.Info("caption too long for photo post; sending text", logx.String("run", c.RunID))
		photo = false
	}

	if err := e.wait(ctx); err != nil {
		a.Err = err
	} else if photo {
		a.Mode = "photo"
		_, a.Err = e.tr.SendPhoto(ctx, opts.Destination, c.ImagePath, body, so)
	} else {
		_, a.Err = e.tr.SendText(ctx, opts.Destination, body, so)
	}
	a.Took = time.Since(start)

	if a.Err != nil {
		e.log.Warn("broadcast failed", logx.String("run", c.RunID), logx.String("mode", a.Mode), logx.Err(a.Err))
	} else {
		e.log.Info("broadcast delivered", logx.String("run", c.RunID), logx.String("mode", a.Mode), logx.Duration("took", a.Took))
	}
	e.publish(eventbus.DeliveryBroadcast, c.RunID, a)
	return a
}
