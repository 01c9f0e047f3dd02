// Package sender turns queued notifications into Telegram messages. It is
// the consuming half of the notification pipeline.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bosskutradingaplikasi-boop/MyKewangan/internal/models"
)

// Messenger delivers a message to a Telegram chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// SenderService delivers queued notifications.
type SenderService struct {
	messenger Messenger
	log       *slog.Logger
}

// New creates a SenderService.
func New(messenger Messenger, log *slog.Logger) *SenderService {
	return &SenderService{
		messenger: messenger,
		log:       log,
	}
}

// SendNotification decodes one queued notification and delivers it. An
// error makes the consumer nack the delivery for redelivery.
func (s *SenderService) SendNotification(ctx context.Context, body []byte) error {
	const op = "sender.SendNotification"

	var notification models.Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		return fmt.Errorf("%s: failed to decode notification: %w", op, err)
	}

	if err := s.messenger.SendMessage(ctx, notification.ChatID, notification.Text); err != nil {
		return fmt.Errorf("%s: failed to send message: %w", op, err)
	}

	s.log.Debug("notification delivered", slog.Int64("chat_id", notification.ChatID))
	return nil
}
