// Package transport is the messaging-platform boundary. The pipeline only
// sees the normalized views defined here; adapters translate to and from the
// platform SDK.
package transport

import (
	"context"
	"time"
)

type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// PlatformTelegram names the Telegram adapter in source attributions.
const PlatformTelegram = "Telegram"

// Media describes an attachment without downloading it.
type Media struct {
	Kind     MediaKind
	FileID   string
	FileName string
	Size     int64 // bytes; 0 when unknown
	Width    int
	Height   int
}

// Message is a normalized inbound post.
type Message struct {
	ID        int
	ChatID    int64
	ChatTitle string
	// Platform names the network the message came from, e.g. "Telegram".
	Platform string
	// ThreadID is the forum topic / reply thread the platform reports.
	ThreadID int
	// ReplyToTopID is the thread of the message this one replies to.
	ReplyToTopID int
	// ReplyToMsgID is the id of the message this one replies to.
	ReplyToMsgID int
	SenderName   string
	Text         string
	Caption      string
	Media        *Media
	AlbumID      string
	Date         time.Time
}

// Event is one logical post: a single message or every item of an album,
// ordered by message id.
type Event struct {
	Messages   []Message
	ReceivedAt time.Time
}

// Primary is the first message of the event.
func (e Event) Primary() Message {
	if len(e.Messages) == 0 {
		return Message{}
	}
	return e.Messages[0]
}

func (e Event) IsAlbum() bool { return len(e.Messages) > 1 }

func (e Event) Platform() string { return e.Primary().Platform }

// Refs lists every message of the event for forwarding.
func (e Event) Refs() []MessageRef {
	out := make([]MessageRef, 0, len(e.Messages))
	for _, m := range e.Messages {
		out = append(out, MessageRef{ChatID: m.ChatID, ThreadID: m.ThreadID, MessageID: m.ID})
	}
	return out
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

const ParseModeHTML = "HTML"

// Adapter is the platform client used by the pipeline. Every call honours
// ctx and the adapter's own per-call timeout.
type Adapter interface {
	Start(ctx context.Context, out chan<- Event) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, path, caption string, opt *SendOptions) (MessageRef, error)
	SendFile(ctx context.Context, to ChatTarget, path, caption string, opt *SendOptions) (MessageRef, error)
	// Forward re-posts msgs to a chat one by one, in order.
	Forward(ctx context.Context, to ChatTarget, msgs []MessageRef) error
	// Download stores the attachment under dir and returns the file path.
	Download(ctx context.Context, m Media, dir string) (string, error)
}

// ChatNotifier posts operator log lines to a fixed chat.
type ChatNotifier struct {
	Adapter Adapter
	To      ChatTarget
}

func (n ChatNotifier) Notify(ctx context.Context, text string) error {
	if n.Adapter == nil || n.To.ChatID == 0 {
		return nil
	}
	_, err := n.Adapter.SendText(ctx, n.To, text, &SendOptions{DisablePreview: true})
	return err
}
