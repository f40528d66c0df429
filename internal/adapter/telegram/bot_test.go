package telegram

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"telegram-gpt-relay/internal/logger"
	"telegram-gpt-relay/internal/usecase/chat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAPI struct {
	mu         sync.Mutex
	updates    chan tgbotapi.Update
	sent       []tgbotapi.Chattable
	requested  []tgbotapi.Chattable
	stopped    bool
	sendErr    error
	requestErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, c)
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeAPI) getRequested() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.requested...)
}

type call struct {
	kind string
	in   chat.Inbound
}

type fakeHandler struct {
	mu    sync.Mutex
	calls []call
	err   error
	panic string
}

func (h *fakeHandler) Start(_ context.Context, in chat.Inbound) error {
	h.record("start", in)
	return nil
}

func (h *fakeHandler) HandleMessage(_ context.Context, in chat.Inbound) error {
	if h.panic != "" && in.Text == h.panic {
		panic("boom")
	}
	h.record("message", in)
	return h.err
}

func (h *fakeHandler) record(kind string, in chat.Inbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call{kind: kind, in: in})
}

func (h *fakeHandler) getCalls() []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	calls := append([]call(nil), h.calls...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].in.Text < calls[j].in.Text })
	return calls
}

func textUpdate(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}}
}

func commandUpdate(userID, chatID int64, command string) tgbotapi.Update {
	u := textUpdate(userID, chatID, command)
	u.Message.Entities = []tgbotapi.MessageEntity{{
		Type:   "bot_command",
		Offset: 0,
		Length: len(strings.Fields(command)[0]),
	}}
	return u
}

// runBot feeds updates to a running bot, closes the channel and waits for Run.
func runBot(t *testing.T, api *fakeAPI, handler Handler, updates ...tgbotapi.Update) {
	t.Helper()
	bot := NewBot(api, handler, logger.Discard())

	done := make(chan error, 1)
	go func() { done <- bot.Run(context.Background()) }()

	for _, u := range updates {
		api.updates <- u
	}
	close(api.updates)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop after updates channel closed")
	}
}

func TestBot_RoutesUpdates(t *testing.T) {
	api := newFakeAPI()
	handler := &fakeHandler{}

	runBot(t, api, handler,
		commandUpdate(1, 100, "/start"),
		commandUpdate(2, 200, "/start@relay_bot"),
		textUpdate(3, 300, "hello there"),
		commandUpdate(4, 400, "/help me"),
		tgbotapi.Update{},
		tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 5}, Text: "no sender"}},
	)

	assert.Equal(t, []call{
		{kind: "message", in: chat.Inbound{UserID: 4, ChatID: 400, Text: "/help me"}},
		{kind: "start", in: chat.Inbound{UserID: 1, ChatID: 100, Text: "/start"}},
		{kind: "start", in: chat.Inbound{UserID: 2, ChatID: 200, Text: "/start@relay_bot"}},
		{kind: "message", in: chat.Inbound{UserID: 3, ChatID: 300, Text: "hello there"}},
	}, handler.getCalls())

	requested := api.getRequested()
	require.NotEmpty(t, requested)
	assert.IsType(t, tgbotapi.DeleteMyCommandsConfig{}, requested[0])
	assert.True(t, api.isStopped())
}

func TestBot_SurvivesHandlerFailures(t *testing.T) {
	api := newFakeAPI()
	api.requestErr = errors.New("unauthorized")
	handler := &fakeHandler{err: errors.New("unexpected"), panic: "explode"}

	runBot(t, api, handler,
		textUpdate(1, 10, "explode"),
		textUpdate(1, 10, "still alive"),
	)

	calls := handler.getCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "still alive", calls[0].in.Text)
}

func TestBot_StopsOnContextCancel(t *testing.T) {
	api := newFakeAPI()
	bot := NewBot(api, &fakeHandler{}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- textUpdate(1, 10, "hi")
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop after cancel")
	}
	assert.True(t, api.isStopped())
}

func TestBuildText(t *testing.T) {
	tests := []struct {
		name string
		msg  *tgbotapi.Message
		want string
	}{
		{
			name: "plain text",
			msg:  &tgbotapi.Message{Text: "  hello  "},
			want: "hello",
		},
		{
			name: "photo with caption",
			msg: &tgbotapi.Message{
				Caption: "our storefront",
				Photo:   []tgbotapi.PhotoSize{{FileID: "a"}, {FileID: "b"}},
			},
			want: "our storefront\n[photo]",
		},
		{
			name: "sticker",
			msg:  &tgbotapi.Message{Sticker: &tgbotapi.Sticker{Emoji: "👍"}},
			want: "[sticker 👍]",
		},
		{
			name: "voice",
			msg:  &tgbotapi.Message{Voice: &tgbotapi.Voice{Duration: 12}},
			want: "[voice message, 12 sec]",
		},
		{
			name: "animation reported once",
			msg: &tgbotapi.Message{
				Animation: &tgbotapi.Animation{FileName: "cat.mp4"},
				Document:  &tgbotapi.Document{FileName: "cat.mp4"},
			},
			want: "[document cat.mp4]",
		},
		{
			name: "nothing",
			msg:  &tgbotapi.Message{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildText(tt.msg))
		})
	}
}
