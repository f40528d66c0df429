package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BuildText flattens a message into the text recorded as the user's turn:
// the message text, its caption and one line per attachment.
func BuildText(msg *tgbotapi.Message) string {
	parts := make([]string, 0, 4)
	if text := strings.TrimSpace(msg.Text); text != "" {
		parts = append(parts, text)
	}
	if caption := strings.TrimSpace(msg.Caption); caption != "" {
		parts = append(parts, caption)
	}
	parts = append(parts, DescribeAttachments(msg)...)

	return strings.Join(parts, "\n")
}

// DescribeAttachments returns a short bracketed note for each non-text part
// of msg. File contents are never fetched.
func DescribeAttachments(msg *tgbotapi.Message) []string {
	parts := make([]string, 0, 2)

	if msg.Sticker != nil {
		parts = append(parts, fmt.Sprintf("[sticker %s]", msg.Sticker.Emoji))
	}
	if len(msg.Photo) > 0 {
		parts = append(parts, "[photo]")
	}
	if msg.Document != nil {
		parts = append(parts, fmt.Sprintf("[document %s]", msg.Document.FileName))
	}
	if msg.Voice != nil {
		parts = append(parts, fmt.Sprintf("[voice message, %d sec]", msg.Voice.Duration))
	}
	if msg.Audio != nil {
		parts = append(parts, fmt.Sprintf("[audio %s, %d sec]", msg.Audio.Title, msg.Audio.Duration))
	}
	if msg.Video != nil {
		parts = append(parts, fmt.Sprintf("[video, %d sec]", msg.Video.Duration))
	}
	if msg.VideoNote != nil {
		parts = append(parts, fmt.Sprintf("[video note, %d sec]", msg.VideoNote.Duration))
	}
	// Telegram also fills Document for animations.
	if msg.Animation != nil && msg.Document == nil {
		parts = append(parts, "[animation]")
	}

	return parts
}
