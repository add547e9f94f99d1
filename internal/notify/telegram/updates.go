package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// allowedUpdates are the update types the chat commands handle.
//
//nolint:gochecknoglobals // Read-only.
var allowedUpdates = []string{"message", "callback_query"}

// GetUpdates long-polls for messages and callback queries from offset on.
func (c *Client) GetUpdates(ctx context.Context, offset, timeoutSeconds int) ([]tgbotapi.Update, error) {
	config := tgbotapi.NewUpdate(offset)
	config.Timeout = timeoutSeconds
	config.AllowedUpdates = allowedUpdates

	response, err := c.request(ctx, "getUpdates", config)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	var updates []tgbotapi.Update
	if err = json.Unmarshal(response.Result, &updates); err != nil {
		return nil, fmt.Errorf("get updates: decode result: %w", err)
	}

	return updates, nil
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, message tgbotapi.MessageConfig) error {
	if _, err := c.request(ctx, "sendMessage", message); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// EditMessageText replaces the text of an earlier message.
func (c *Client) EditMessageText(ctx context.Context, edit tgbotapi.EditMessageTextConfig) error {
	if _, err := c.request(ctx, "editMessageText", edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}

	return nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops its spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callback tgbotapi.CallbackConfig) error {
	if _, err := c.request(ctx, "answerCallbackQuery", callback); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}

	return nil
}
