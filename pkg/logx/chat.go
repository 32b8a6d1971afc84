package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const (
	chatMaxLen   = 3500
	chatFieldCap = 600
)

func (s *Service) startChatWorker() {
	ctx, cancel := context.WithCancel(context.Background())
	s.chatCancel = cancel
	s.chatWG.Add(1)
	go func() {
		defer s.chatWG.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case line := <-s.chatQueue:
				s.mu.Lock()
				n := s.notifier
				s.mu.Unlock()
				if n != nil {
					_ = n.Notify(ctx, line)
				}
			}
		}
	}()
}

// chatWriter is the zerolog sink forwarding filtered lines to operators.
// It never blocks the caller: lines are dropped when the queue is full or
// the limiter refuses.
type chatWriter struct{ svc *Service }

func (w *chatWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *chatWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	s.mu.Lock()
	lim, minLevel, hasTarget := s.limiter, s.minLevel, s.notifier != nil
	s.mu.Unlock()

	if !hasTarget || level < minLevel || lim == nil || !lim.Allow() {
		return len(p), nil
	}
	if line := renderChatLine(p); line != "" {
		select {
		case s.chatQueue <- line:
		default:
		}
	}
	return len(p), nil
}

// renderChatLine turns one zerolog JSON line into a compact human message:
// "[LEVEL] message" followed by "- key=value" lines in key order.
func renderChatLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(p), &m); err != nil {
		return clip(strings.TrimSpace(string(p)), chatMaxLen)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m[zerolog.MessageFieldName].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", zerolog.MessageFieldName:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- " + k + "=")
		b.WriteString(clip(fmt.Sprint(m[k]), chatFieldCap))
	}
	return clip(b.String(), chatMaxLen)
}

func clip(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n < 10 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
