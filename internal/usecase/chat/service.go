package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"telegram-gpt-relay/internal/config"
	"telegram-gpt-relay/internal/domain"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrCompletion   = errors.New("completion failed")
)

// FallbackNotice is sent when the completion service cannot produce a reply.
const FallbackNotice = "⚠️ Something went wrong. Please try again)"

// greetingDelays are the pauses before each greeting message. Messages past
// the end of the list reuse the last pause.
var greetingDelays = []time.Duration{0, time.Second, 1500 * time.Millisecond}

type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	Model               string
	Messages            []Message
	MaxCompletionTokens int
	Temperature         float32
}

type Message struct {
	Role string
	Text string
}

// Sender delivers outbound messages to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendTyping(ctx context.Context, chatID int64) error
}

// Inbound is one message received from a user.
type Inbound struct {
	UserID int64
	ChatID int64
	Text   string
}

type Service struct {
	store     domain.SessionStore
	client    Client
	sender    Sender
	segmenter Segmenter
	cfg       config.Config
	logger    *log.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	newID     func() string
}

func NewService(store domain.SessionStore, client Client, sender Sender, cfg config.Config, logger *log.Logger) *Service {
	return &Service{
		store:     store,
		client:    client,
		sender:    sender,
		segmenter: NewSegmenter(cfg.Delimiter, cfg.CharsPerSecond, cfg.MaxChunkDelay),
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
		newID:     uuid.NewString,
	}
}

// Start resets the user's conversation and plays the greeting.
func (s *Service) Start(ctx context.Context, in Inbound) error {
	logger := s.requestLogger(in)
	s.store.Reset(in.UserID)
	logger.Info("conversation reset")

	for i, text := range s.cfg.Greeting {
		if d := greetingDelay(i); d > 0 {
			if err := s.sleep(ctx, d); err != nil {
				return err
			}
		}
		s.send(ctx, logger, in.ChatID, text)
	}
	return nil
}

// HandleMessage records the user's message, asks the completion service for
// a reply and delivers it in paced chunks. When the completion fails the user
// gets FallbackNotice and the returned error wraps ErrCompletion.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) error {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return ErrEmptyMessage
	}

	logger := s.requestLogger(in)
	history := s.store.AppendUser(in.UserID, text)
	logger.Debug("message recorded", "history", len(history))

	s.signalTyping(ctx, logger, in.ChatID)

	reply, err := s.client.Complete(ctx, s.completionRequest(history))
	if err != nil {
		logger.Error("completion request failed", "err", err)
		s.send(ctx, logger, in.ChatID, FallbackNotice)
		return fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	s.store.AppendAssistant(in.UserID, reply)

	chunks := s.segmenter.Segment(reply)
	if len(chunks) == 0 {
		logger.Warn("completion reply has no visible text")
		return nil
	}
	s.deliver(ctx, logger, in.ChatID, chunks)
	return nil
}

func (s *Service) completionRequest(history []domain.Turn) CompletionRequest {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{
		Role: domain.RoleSystem,
		Text: s.cfg.SystemPrompt,
	})
	for _, h := range history {
		messages = append(messages, Message{
			Role: h.Role,
			Text: h.Content,
		})
	}

	return CompletionRequest{
		Model:               s.cfg.Model,
		Messages:            messages,
		MaxCompletionTokens: s.cfg.MaxCompletionTokens,
		Temperature:         s.cfg.Temperature,
	}
}

// deliver sends chunks in order. Multi-chunk replies show typing and wait
// each chunk's delay first. A failed send does not stop later chunks.
func (s *Service) deliver(ctx context.Context, logger *log.Logger, chatID int64, chunks []Chunk) {
	paced := len(chunks) > 1
	for i, chunk := range chunks {
		if paced {
			s.signalTyping(ctx, logger, chatID)
			if err := s.sleep(ctx, chunk.Delay); err != nil {
				logger.Warn("delivery interrupted", "sent", i, "dropped", len(chunks)-i, "err", err)
				return
			}
		}
		s.send(ctx, logger, chatID, chunk.Text)
	}
}

func (s *Service) send(ctx context.Context, logger *log.Logger, chatID int64, text string) {
	if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
		logger.Warn("failed to send message", "err", err)
	}
}

func (s *Service) signalTyping(ctx context.Context, logger *log.Logger, chatID int64) {
	if err := s.sender.SendTyping(ctx, chatID); err != nil {
		logger.Debug("failed to send typing indicator", "err", err)
	}
}

func (s *Service) requestLogger(in Inbound) *log.Logger {
	return s.logger.With("request_id", s.newID(), "user_id", in.UserID, "chat_id", in.ChatID)
}

func greetingDelay(i int) time.Duration {
	if i < len(greetingDelays) {
		return greetingDelays[i]
	}
	return greetingDelays[len(greetingDelays)-1]
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
