package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"strings"
)

type validation struct {
	function     func(input string) bool
	errorMessage string
}

type textInput struct {
	chatID      int64
	initMessage string
	onFinish    func(input string)
	validations []validation
}

func newTextInput(chatID int64, initMessage string, onFinish func(input string)) *textInput {
	input := &textInput{chatID: chatID, initMessage: initMessage, onFinish: onFinish}
	input.AddValidation(validation{
		function:     func(input string) bool { return input != "" },
		errorMessage: "Текст не може бути порожнім.",
	})
	return input
}

func (a *textInput) AddValidation(validation validation) {
	a.validations = append(a.validations, validation)
}

func (a *textInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(a.chatID, a.initMessage)
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (a *textInput) HandleInput(input string) botApi.Chattable {

	input = strings.TrimSpace(input)
	for _, v := range a.validations {
		if !v.function(input) {
			msg := botApi.NewMessage(a.chatID, v.errorMessage)
			msg.ReplyMarkup = keyboardWithExit()
			return msg
		}
	}

	a.onFinish(input)
	return nil
}
