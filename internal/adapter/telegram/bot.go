package telegram

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-gpt-relay/internal/usecase/chat"
)

const startCommand = "start"

// API is the subset of *tgbotapi.BotAPI used by the bot.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler processes inbound messages.
type Handler interface {
	Start(ctx context.Context, in chat.Inbound) error
	HandleMessage(ctx context.Context, in chat.Inbound) error
}

func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

type Bot struct {
	api     API
	handler Handler
	logger  *log.Logger
	wg      sync.WaitGroup
}

func NewBot(api API, handler Handler, logger *log.Logger) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		logger:  logger,
	}
}

// Run polls for updates until ctx is done or the update channel closes,
// handling each message on its own goroutine. It returns after in-flight
// handlers finish.
func (b *Bot) Run(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewDeleteMyCommands()); err != nil {
		b.logger.Warn("failed to clear bot commands", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	b.logger.Info("bot started, polling for updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Chat == nil {
				continue
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleMessage(ctx, msg)
			}()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling message",
				"chat_id", msg.Chat.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	in := chat.Inbound{
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   BuildText(msg),
	}

	if msg.IsCommand() && msg.Command() == startCommand {
		if err := b.handler.Start(ctx, in); err != nil {
			b.logger.Warn("start command interrupted", "chat_id", in.ChatID, "err", err)
		}
		return
	}

	err := b.handler.HandleMessage(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, chat.ErrEmptyMessage):
		b.logger.Debug("ignoring message without content", "chat_id", in.ChatID)
	case errors.Is(err, chat.ErrCompletion):
		// already reported to the user and logged by the service
	default:
		b.logger.Error("failed to handle message", "chat_id", in.ChatID, "err", err)
	}
}
