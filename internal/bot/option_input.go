package bot

import (
	"context"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/samber/lo"
)

const skipOptionLabel = "Будь-яке"

type option struct {
	ID   int
	Name string
}

// optionInput asks to pick one of the options from a reply keyboard. With allowSkip the
// user may answer skipOptionLabel and onFinish receives nil.
type optionInput struct {
	chatID    int64
	prompt    string
	options   []option
	allowSkip bool
	onFinish  func(id *int)
}

func newOptionInput(chatID int64, prompt string, options []option, allowSkip bool, onFinish func(id *int)) *optionInput {
	return &optionInput{chatID: chatID, prompt: prompt, options: options, allowSkip: allowSkip, onFinish: onFinish}
}

func newCityInput(chatID int64, references referenceRepository, allowSkip bool, onFinish func(id *int)) (*optionInput, error) {
	cities, err := references.Cities(context.Background())
	if err != nil {
		return nil, err
	}
	options := lo.Map(cities, func(c models.City, _ int) option { return option{ID: c.ID, Name: c.Name} })
	return newOptionInput(chatID, "Оберіть місто.", options, allowSkip, onFinish), nil
}

func newCategoryInput(chatID int64, references referenceRepository, allowSkip bool, onFinish func(id *int)) (*optionInput, error) {
	categories, err := references.Categories(context.Background())
	if err != nil {
		return nil, err
	}
	options := lo.Map(categories, func(c models.Category, _ int) option { return option{ID: c.ID, Name: c.Name} })
	return newOptionInput(chatID, "Оберіть категорію.", options, allowSkip, onFinish), nil
}

func (o *optionInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(o.chatID, o.prompt)
	msg.ReplyMarkup = o.keyboard()
	return msg
}

func (o *optionInput) HandleInput(input string) botApi.Chattable {

	if o.allowSkip && input == skipOptionLabel {
		o.onFinish(nil)
		return nil
	}

	normalized := models.NormalizeName(input)
	for _, opt := range o.options {
		if models.NormalizeName(opt.Name) == normalized {
			id := opt.ID
			o.onFinish(&id)
			return nil
		}
	}

	msg := botApi.NewMessage(o.chatID, "Такого варіанту немає, оберіть зі списку.")
	msg.ReplyMarkup = o.keyboard()
	return msg
}

func (o *optionInput) keyboard() botApi.ReplyKeyboardMarkup {
	var rows [][]botApi.KeyboardButton
	for _, chunk := range lo.Chunk(o.options, 3) {
		rows = append(rows, botApi.NewKeyboardButtonRow(lo.Map(chunk, func(opt option, _ int) botApi.KeyboardButton {
			return botApi.NewKeyboardButton(opt.Name)
		})...))
	}
	if o.allowSkip {
		rows = append(rows, botApi.NewKeyboardButtonRow(botApi.NewKeyboardButton(skipOptionLabel)))
	}
	rows = append(rows, botApi.NewKeyboardButtonRow(botApi.NewKeyboardButton(actionLabels[actionCancel])))
	return botApi.NewReplyKeyboard(rows...)
}
