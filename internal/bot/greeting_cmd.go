package bot

import (
	"context"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
)

type greetingCommand struct {
	api                  apiInterface
	chatID               int64
	greetings            greetingService
	input                inputHandler
	text                 string
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newGreetingCommand(api apiInterface, chatID int64, greetings greetingService) *greetingCommand {
	cmd := &greetingCommand{api: api, chatID: chatID, greetings: greetings}
	cmd.input = newTextInput(chatID, "Поточне привітання:\n\n"+greetings.Get(context.Background())+
		"\n\nНадішліть новий текст привітання.", func(input string) { cmd.text = input })
	return cmd
}

func (c *greetingCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *greetingCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *greetingCommand) Run() {
	_, _ = sendWithLogError(c.api, c.input.InitMessage())
}

func (c *greetingCommand) OnUserInput(input string) {

	msg := c.input.HandleInput(input)
	if c.text == "" {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	reply := "Привітання оновлено."
	if err := c.greetings.Set(context.Background(), c.text); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		reply = "Внутрішня помилка!"
	}
	_, _ = sendWithLogError(c.api, finalMessage(c.chatID, reply, c.finalMessageKeyboard))

	if c.finishCallback != nil {
		c.finishCallback()
	}
}
