package notify

import (
	"context"

	"github.com/oshokin/outage-watch/internal/logger"
)

// Notifier delivers messages to the configured channel.
type Notifier interface {
	// SendText delivers an HTML-formatted message.
	SendText(ctx context.Context, text string) error
	// SendPhoto delivers a PNG image with an HTML-formatted caption.
	SendPhoto(ctx context.Context, image []byte, caption string) error
}

// LogNotifier writes notifications to the log instead of a channel.
type LogNotifier struct{}

// SendText logs the message.
func (LogNotifier) SendText(ctx context.Context, text string) error {
	logger.InfoKV(ctx, "Notification (dry run)", "text", text)

	return nil
}

// SendPhoto logs the caption and the image size.
func (LogNotifier) SendPhoto(ctx context.Context, image []byte, caption string) error {
	logger.InfoKV(ctx, "Photo notification (dry run)", "caption", caption, "image_bytes", len(image))

	return nil
}
