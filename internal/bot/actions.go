package bot

import (
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"slices"
)

// actionID is the canonical name of a user action. Slash commands and keyboard labels both
// resolve to it, labels are presentation only.
type actionID string

const (
	actionStart       actionID = "start"
	actionAdd         actionID = "add"
	actionList        actionID = "list"
	actionRemove      actionID = "remove"
	actionUnsubscribe actionID = "unsubscribe"
	actionHelp        actionID = "help"
	actionMenu        actionID = "menu"
	actionGreeting    actionID = "greeting"
	actionPost        actionID = "post"
	actionCancel      actionID = "cancel"
)

var actionLabels = map[actionID]string{
	actionAdd:         "Додати підписку",
	actionList:        "Мої підписки",
	actionRemove:      "Видалити підписку",
	actionUnsubscribe: "Відписатися від усього",
	actionHelp:        "Допомога",
	actionMenu:        "Головне меню",
	actionGreeting:    "Змінити привітання",
	actionPost:        "Новий пост",
	actionCancel:      "Скасувати",
}

var adminActions = []actionID{actionGreeting, actionPost}

var allActions = []actionID{actionStart, actionAdd, actionList, actionRemove, actionUnsubscribe,
	actionHelp, actionMenu, actionGreeting, actionPost, actionCancel}

// resolveAction maps a slash command or a keyboard label to an action. isAction is false for
// plain text, known is false for an unknown slash command.
func resolveAction(message *botApi.Message) (id actionID, isAction bool, known bool) {

	if cmd := message.Command(); cmd != "" {
		id = actionID(cmd)
		return id, true, slices.Contains(allActions, id)
	}

	for id, label := range actionLabels {
		if label == message.Text {
			return id, true, true
		}
	}
	return "", false, false
}

func isAdminAction(id actionID) bool {
	return slices.Contains(adminActions, id)
}

func defaultReplyKeyboard(isAdmin bool) botApi.ReplyKeyboardMarkup {

	rows := [][]botApi.KeyboardButton{
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(actionLabels[actionAdd]),
			botApi.NewKeyboardButton(actionLabels[actionList]),
		),
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(actionLabels[actionRemove]),
			botApi.NewKeyboardButton(actionLabels[actionUnsubscribe]),
		),
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(actionLabels[actionHelp]),
		),
	}

	if isAdmin {
		rows = append(rows, botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(actionLabels[actionGreeting]),
			botApi.NewKeyboardButton(actionLabels[actionPost]),
		))
	}

	return botApi.NewReplyKeyboard(rows...)
}

func keyboardWithExit() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(actionLabels[actionCancel]),
		),
	)
}
