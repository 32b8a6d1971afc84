package ingest

import (
	kit "castbot/internal/transport"
)

// Source is one monitored chat. A nil ThreadID accepts the whole chat;
// otherwise only posts of that topic are accepted.
type Source struct {
	Name     string
	ChatID   int64
	ThreadID *int
}

// Sources is an immutable lookup built from the configured list.
type Sources struct {
	whole  map[int64]string
	topics map[int64]map[int]string
}

func NewSources(list []Source) *Sources {
	s := &Sources{whole: map[int64]string{}, topics: map[int64]map[int]string{}}
	for _, src := range list {
		if src.ThreadID == nil {
			s.whole[src.ChatID] = src.Name
			continue
		}
		if s.topics[src.ChatID] == nil {
			s.topics[src.ChatID] = map[int]string{}
		}
		s.topics[src.ChatID][*src.ThreadID] = src.Name
	}
	return s
}

func (s *Sources) Len() int {
	n := len(s.whole)
	for _, t := range s.topics {
		n += len(t)
	}
	return n
}

// Match reports whether m belongs to a configured source. Whole-chat
// sources win over topic sources of the same chat.
func (s *Sources) Match(m kit.Message) (name string, ok bool) {
	if name, ok := s.whole[m.ChatID]; ok {
		return name, true
	}
	topics := s.topics[m.ChatID]
	if len(topics) == 0 {
		return "", false
	}
	topic, found := Topic(m)
	if !found {
		return "", false
	}
	name, ok = topics[topic]
	return name, ok
}

// TopicExtractor reads a topic id from one place the platform may put it.
type TopicExtractor func(kit.Message) int

// TopicExtractors are tried in order; the first non-zero id wins.
var TopicExtractors = []TopicExtractor{
	func(m kit.Message) int { return m.ThreadID },
	func(m kit.Message) int { return m.ReplyToTopID },
	func(m kit.Message) int { return m.ReplyToMsgID },
}

// Topic returns the topic id of m, if any.
func Topic(m kit.Message) (int, bool) {
	for _, ex := range TopicExtractors {
		if id := ex(m); id != 0 {
			return id, true
		}
	}
	return 0, false
}

// ExtractText returns the first non-blank of the primary text, the primary
// caption and the captions of the other album items.
func ExtractText(ev kit.Event) string {
	if len(ev.Messages) == 0 {
		return ""
	}
	p := ev.Messages[0]
	for _, s := range []string{p.Text, p.Caption} {
		if nonBlank(s) {
			return s
		}
	}
	for _, m := range ev.Messages[1:] {
		for _, s := range []string{m.Text, m.Caption} {
			if nonBlank(s) {
				return s
			}
		}
	}
	return ""
}

func nonBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
