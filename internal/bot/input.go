package bot

import botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// inputHandler is one step of a command. HandleInput returns the reply for rejected input
// and nil once the input is accepted and passed on.
type inputHandler interface {
	InitMessage() botApi.Chattable
	HandleInput(input string) botApi.Chattable
}
