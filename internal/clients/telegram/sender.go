package telegram

import (
	"context"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type api interface {
	Send(chattable botApi.Chattable) (botApi.Message, error)
}

// Sender delivers Markdown messages to chats within the Telegram rate limits.
type Sender struct {
	api         api
	rateLimiter *rate.Limiter
}

func NewSender(api api, maxMessagesPerSecond float32) *Sender {
	sender := &Sender{api: api}
	if maxMessagesPerSecond > 0 {
		sender.rateLimiter = rate.NewLimiter(rate.Limit(maxMessagesPerSecond), 1)
	}
	return sender
}

func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {

	if s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return err
		}
	}

	msg := botApi.NewMessage(chatID, text)
	msg.ParseMode = botApi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := s.api.Send(msg); err != nil {
		return errors.Wrapf(err, "failed to send message to chat %d", chatID)
	}
	return nil
}
