package telegram

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/net/html"
)

// MaxCaptionLength is the Bot API limit for photo captions, counted on the
// text left after HTML parsing.
const MaxCaptionLength = 1024

// shortCaption accompanies a chart whose full text went out as a separate message.
const shortCaption = "Графік за останні 24 години"

// chartFilename is the upload name of the chart image.
const chartFilename = "chart.png"

// Notifier delivers messages to one channel.
type Notifier struct {
	// client talks to the Bot API.
	client *Client
	// chatID is the numeric target chat, zero when the channel is given by name.
	chatID int64
	// channelUsername is the @username target.
	channelUsername string
}

// NewNotifier returns a notifier posting to channelID, a numeric id or @username.
func NewNotifier(client *Client, channelID string) *Notifier {
	n := &Notifier{client: client}

	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		n.chatID = id
	} else {
		n.channelUsername = channelID
	}

	return n
}

// SendText posts an HTML message to the channel.
func (n *Notifier) SendText(ctx context.Context, text string) error {
	message := tgbotapi.NewMessage(n.chatID, text)
	message.ChannelUsername = n.channelUsername
	message.ParseMode = tgbotapi.ModeHTML

	return n.client.SendMessage(ctx, message)
}

// SendPhoto posts a PNG with an HTML caption. Captions over the API limit
// are sent as a text message first, then the photo gets a short caption.
func (n *Notifier) SendPhoto(ctx context.Context, image []byte, caption string) error {
	if captionLength(caption) > MaxCaptionLength {
		if err := n.SendText(ctx, caption); err != nil {
			return err
		}

		caption = shortCaption
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{Name: chartFilename, Bytes: image})
	photo.ChannelUsername = n.channelUsername
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	if _, err := n.client.request(ctx, "sendPhoto", photo); err != nil {
		return err
	}

	return nil
}

// captionLength counts the characters Telegram sees: tags are dropped and
// entities decoded.
func captionLength(caption string) int {
	tokenizer := html.NewTokenizer(strings.NewReader(caption))
	length := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return length
			}

			return utf8.RuneCountInString(caption)
		case html.TextToken:
			length += utf8.RuneCount(tokenizer.Text())
		default:
		}
	}
}
