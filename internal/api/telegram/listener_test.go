package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// fakeBot serves queued updates and records every call.
type fakeBot struct {
	mu       sync.Mutex
	updates  [][]tgbotapi.Update
	offsets  []int
	sent     []tgbotapi.MessageConfig
	edited   []string
	answered []string
	pollErr  error
}

func (b *fakeBot) GetUpdates(_ context.Context, offset, _ int) ([]tgbotapi.Update, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.offsets = append(b.offsets, offset)

	if b.pollErr != nil {
		return nil, b.pollErr
	}

	if len(b.updates) == 0 {
		return nil, nil
	}

	batch := b.updates[0]
	b.updates = b.updates[1:]

	return batch, nil
}

func (b *fakeBot) SendMessage(_ context.Context, message tgbotapi.MessageConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sent = append(b.sent, message)

	return nil
}

func (b *fakeBot) EditMessageText(_ context.Context, edit tgbotapi.EditMessageTextConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.edited = append(b.edited, edit.Text)

	return nil
}

func (b *fakeBot) AnswerCallbackQuery(_ context.Context, callback tgbotapi.CallbackConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.answered = append(b.answered, callback.Text)

	return nil
}

// fakeTrigger counts manual checks.
type fakeTrigger struct {
	calls int
	err   error
}

func (f *fakeTrigger) TriggerCheck(context.Context) (*outage.CycleReport, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	return &outage.CycleReport{CycleID: "c-1", Notified: 1}, nil
}

// startUpdate is a /start message from user.
func startUpdate(id int, user int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: user},
			Chat:      &tgbotapi.Chat{ID: user},
			Text:      "/start@outage_bot",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 17}},
		},
	}
}

// checkUpdate is a press of the check button by user.
func checkUpdate(id int, user int64) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: user},
			Data:    CheckNowData,
			Message: &tgbotapi.Message{MessageID: 11, Chat: &tgbotapi.Chat{ID: user}},
		},
	}
}

// TestListener_Start replies with the check button and advances the offset.
func TestListener_Start(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: [][]tgbotapi.Update{{startUpdate(5, 1)}}}
	listener := NewListener(bot, new(fakeTrigger), 30*time.Second)

	require.NoError(t, listener.Poll(t.Context()))
	require.NoError(t, listener.Poll(t.Context()))

	require.Equal(t, []int{0, 6}, bot.offsets)
	require.Len(t, bot.sent, 1)
	require.Contains(t, bot.sent[0].Text, "30s")
	require.Equal(t, int64(1), bot.sent[0].ChatID)

	keyboard, ok := bot.sent[0].ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Equal(t, checkButton, keyboard.InlineKeyboard[0][0].Text)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	require.Equal(t, CheckNowData, *keyboard.InlineKeyboard[0][0].CallbackData)
}

// TestListener_CheckNow runs one cycle and edits the message twice.
func TestListener_CheckNow(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: [][]tgbotapi.Update{{checkUpdate(1, 7)}}}
	trigger := new(fakeTrigger)

	require.NoError(t, NewListener(bot, trigger, time.Minute).Poll(t.Context()))

	require.Equal(t, 1, trigger.calls)
	require.Equal(t, []string{""}, bot.answered)
	require.Equal(t, []string{checkingText, doneText}, bot.edited)
}

// TestListener_CheckFailure reports a failed cycle.
func TestListener_CheckFailure(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: [][]tgbotapi.Update{{checkUpdate(1, 7)}}}
	trigger := &fakeTrigger{err: errors.New("source down")}

	require.NoError(t, NewListener(bot, trigger, time.Minute).Poll(t.Context()))
	require.Equal(t, []string{checkingText, failedText}, bot.edited)
}

// TestListener_AdminOnly ignores commands from other users.
func TestListener_AdminOnly(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{updates: [][]tgbotapi.Update{{startUpdate(1, 2), checkUpdate(2, 2)}}}
	trigger := new(fakeTrigger)

	require.NoError(t, NewListener(bot, trigger, time.Minute, WithAdmin(1)).Poll(t.Context()))

	require.Zero(t, trigger.calls)
	require.Len(t, bot.sent, 1)
	require.Equal(t, forbiddenText, bot.sent[0].Text)
	require.Equal(t, []string{forbiddenText}, bot.answered)
	require.Empty(t, bot.edited)
}

// TestListener_RunStopsOnCancel ensures Run returns once the context ends, even while polls fail.
func TestListener_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	bot := &fakeBot{pollErr: errors.New("network down")}
	listener := NewListener(bot, new(fakeTrigger), time.Minute, WithRetryDelay(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, listener.Run(ctx))
}
