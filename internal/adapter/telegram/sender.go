package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLength is Telegram's limit for one text message, in characters.
const maxMessageLength = 4096

// Sender delivers chat output through the Bot API.
type Sender struct {
	api API
}

func NewSender(api API) *Sender {
	return &Sender{api: api}
}

// SendMessage sends text as plain text, splitting it when it exceeds the
// Telegram limit. Every part is attempted.
func (s *Sender) SendMessage(_ context.Context, chatID int64, text string) error {
	var errs []error
	for _, part := range splitText(text, maxMessageLength) {
		if _, err := s.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sender) SendTyping(_ context.Context, chatID int64) error {
	_, err := s.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

func splitText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/chunkSize+1)
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
