package adapter

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "castbot/internal/transport"
)

func toMessage(m *tele.Message) kit.Message {
	out := kit.Message{
		ID:        m.ID,
		ChatID:    m.Chat.ID,
		ChatTitle: chatTitle(m.Chat),
		Platform:  kit.PlatformTelegram,
		ThreadID:  m.ThreadID,
		Text:      m.Text,
		Caption:   m.Caption,
		AlbumID:   m.AlbumID,
		Date:      m.Time(),
		Media:     toMedia(m),
	}
	if m.ReplyTo != nil {
		out.ReplyToMsgID = m.ReplyTo.ID
		out.ReplyToTopID = m.ReplyTo.ThreadID
	}
	if m.Sender != nil {
		out.SenderName = strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName)
	}
	return out
}

func chatTitle(c *tele.Chat) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.Username != "":
		return "@" + c.Username
	default:
		return strings.TrimSpace(c.FirstName + " " + c.LastName)
	}
}

func toMedia(m *tele.Message) *kit.Media {
	switch {
	case m.Photo != nil:
		return &kit.Media{
			Kind:   kit.MediaPhoto,
			FileID: m.Photo.FileID,
			Size:   int64(m.Photo.FileSize),
			Width:  m.Photo.Width,
			Height: m.Photo.Height,
		}
	case m.Video != nil:
		return &kit.Media{
			Kind:     kit.MediaVideo,
			FileID:   m.Video.FileID,
			FileName: m.Video.FileName,
			Size:     int64(m.Video.FileSize),
			Width:    m.Video.Width,
			Height:   m.Video.Height,
		}
	case m.Document != nil:
		return &kit.Media{
			Kind:     kit.MediaDocument,
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			Size:     int64(m.Document.FileSize),
		}
	default:
		return nil
	}
}
