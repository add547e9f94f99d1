package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/oshokin/outage-watch/internal/domain/outage"
	"github.com/oshokin/outage-watch/internal/logger"
)

// Bot is the part of the Bot API the listener uses.
type Bot interface {
	GetUpdates(ctx context.Context, offset, timeoutSeconds int) ([]tgbotapi.Update, error)
	SendMessage(ctx context.Context, message tgbotapi.MessageConfig) error
	EditMessageText(ctx context.Context, edit tgbotapi.EditMessageTextConfig) error
	AnswerCallbackQuery(ctx context.Context, callback tgbotapi.CallbackConfig) error
}

// Trigger runs one poll cycle on demand.
type Trigger interface {
	TriggerCheck(ctx context.Context) (*outage.CycleReport, error)
}

const (
	// CheckNowData is the callback data of the check button.
	CheckNowData = "check_now"
	// DefaultPollTimeout is the getUpdates long-poll duration.
	DefaultPollTimeout = 25 * time.Second
	// DefaultRetryDelay is the pause after a failed getUpdates.
	DefaultRetryDelay = 5 * time.Second

	startCommand  = "start"
	checkButton   = "Перевірити зараз"
	checkingText  = "Перевіряю..."
	doneText      = "Готово! Див. канал"
	failedText    = "Не вдалося перевірити, спробуйте пізніше"
	forbiddenText = "Недостатньо прав"
)

// Listener dispatches bot updates.
type Listener struct {
	// bot talks to the Bot API.
	bot Bot
	// trigger runs a cycle.
	trigger Trigger
	// intro is the /start reply.
	intro string
	// adminID restricts commands when non-zero.
	adminID int64
	// pollTimeout is the long-poll duration.
	pollTimeout time.Duration
	// retryDelay is the pause after a failed poll.
	retryDelay time.Duration
	// offset is the next update id to fetch.
	offset int
}

// Option configures a Listener.
type Option func(*Listener)

// WithAdmin restricts commands to one user id.
func WithAdmin(id int64) Option {
	return func(l *Listener) {
		l.adminID = id
	}
}

// WithPollTimeout sets the long-poll duration.
func WithPollTimeout(timeout time.Duration) Option {
	return func(l *Listener) {
		if timeout >= 0 {
			l.pollTimeout = timeout
		}
	}
}

// WithRetryDelay sets the pause after a failed poll.
func WithRetryDelay(delay time.Duration) Option {
	return func(l *Listener) {
		if delay > 0 {
			l.retryDelay = delay
		}
	}
}

// NewListener returns a listener. pollInterval is shown in the /start reply.
func NewListener(bot Bot, trigger Trigger, pollInterval time.Duration, opts ...Option) *Listener {
	l := &Listener{
		bot:         bot,
		trigger:     trigger,
		intro:       fmt.Sprintf("Моніторинг світла\nОновлення: кожні %s", pollInterval),
		pollTimeout: DefaultPollTimeout,
		retryDelay:  DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run polls for updates until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "telegram-commands")
	logger.Info(ctx, "Listening for bot commands")

	for {
		if err := l.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.WarnKV(ctx, "Bot update poll failed", "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.retryDelay):
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Poll fetches one batch of updates and handles them in order.
func (l *Listener) Poll(ctx context.Context) error {
	updates, err := l.bot.GetUpdates(ctx, l.offset, int(l.pollTimeout/time.Second))
	if err != nil {
		return err
	}

	for _, update := range updates {
		l.offset = max(l.offset, update.UpdateID+1)

		switch {
		case update.Message != nil:
			l.handleMessage(ctx, update.Message)
		case update.CallbackQuery != nil:
			l.handleCallback(ctx, update.CallbackQuery)
		}
	}

	return nil
}

// handleMessage answers /start.
func (l *Listener) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Command drops the bot name groups add: /start@bot.
	if message.Command() != startCommand || message.Chat == nil {
		return
	}

	if message.From == nil || !l.allowed(message.From.ID) {
		l.send(ctx, message.Chat.ID, forbiddenText, nil)

		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(checkButton, CheckNowData)),
	)

	l.send(ctx, message.Chat.ID, l.intro, &keyboard)
}

// handleCallback runs a cycle for the check button.
func (l *Listener) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Data != CheckNowData {
		l.answer(ctx, query.ID, "")

		return
	}

	if query.From == nil || !l.allowed(query.From.ID) {
		l.answer(ctx, query.ID, forbiddenText)

		return
	}

	l.answer(ctx, query.ID, "")
	l.edit(ctx, query.Message, checkingText)

	logger.InfoKV(ctx, "Manual check requested", "actor", fmt.Sprintf("telegram:%d", query.From.ID))

	report, err := l.trigger.TriggerCheck(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		logger.ErrorKV(ctx, "Manual check failed", "error", err)
		l.edit(ctx, query.Message, failedText)

		return
	}

	logger.InfoKV(ctx, "Manual check finished", "cycle_id", report.CycleID, "notified", report.Notified)
	l.edit(ctx, query.Message, doneText)
}

// allowed reports whether user may run commands.
func (l *Listener) allowed(userID int64) bool {
	return l.adminID == 0 || l.adminID == userID
}

// send posts a reply and logs failures.
func (l *Listener) send(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	message := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		message.ReplyMarkup = keyboard
	}

	if err := l.bot.SendMessage(ctx, message); err != nil {
		logger.WarnKV(ctx, "Reply not sent", "chat_id", chatID, "error", err)
	}
}

// edit replaces the text of the message holding the button.
func (l *Listener) edit(ctx context.Context, message *tgbotapi.Message, text string) {
	if message == nil || message.Chat == nil {
		return
	}

	edit := tgbotapi.NewEditMessageText(message.Chat.ID, message.MessageID, text)

	if err := l.bot.EditMessageText(ctx, edit); err != nil {
		logger.WarnKV(ctx, "Message not edited", "chat_id", message.Chat.ID, "error", err)
	}
}

// answer acknowledges a callback query.
func (l *Listener) answer(ctx context.Context, callbackID, text string) {
	if err := l.bot.AnswerCallbackQuery(ctx, tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.WarnKV(ctx, "Callback not answered", "error", err)
	}
}
