package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/events"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
)

type addSubscriptionStep int

const (
	addStepCity addSubscriptionStep = iota
	addStepCategory
	addStepDone
)

type addSubscriptionCommand struct {
	api                  apiInterface
	chatID               int64
	bus                  EventBus.Bus
	subscriptions        subscriptionRepository
	references           referenceRepository
	pipeline             subscribeDeliverer
	inputs               map[addSubscriptionStep]inputHandler
	step                 addSubscriptionStep
	cityID               int
	categoryID           int
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newAddSubscriptionCommand(api apiInterface, chatID int64, bus EventBus.Bus, subscriptions subscriptionRepository,
	references referenceRepository, pipeline subscribeDeliverer) (*addSubscriptionCommand, error) {

	cmd := &addSubscriptionCommand{api: api, chatID: chatID, bus: bus, subscriptions: subscriptions,
		references: references, pipeline: pipeline}

	city, err := newCityInput(chatID, references, false, func(id *int) {
		cmd.cityID = *id
		cmd.step = addStepCategory
	})
	if err != nil {
		return nil, err
	}

	category, err := newCategoryInput(chatID, references, false, func(id *int) {
		cmd.categoryID = *id
		cmd.step = addStepDone
	})
	if err != nil {
		return nil, err
	}

	cmd.inputs = map[addSubscriptionStep]inputHandler{addStepCity: city, addStepCategory: category}
	return cmd, nil
}

func (c *addSubscriptionCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *addSubscriptionCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

type addSubscriptionState struct {
	Step       addSubscriptionStep
	CityID     int
	CategoryID int
}

func (c *addSubscriptionCommand) SaveState() ([]byte, error) {
	return json.Marshal(addSubscriptionState{Step: c.step, CityID: c.cityID, CategoryID: c.categoryID})
}

func (c *addSubscriptionCommand) LoadState(data []byte) error {
	var state addSubscriptionState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Step < addStepCity || state.Step >= addStepDone {
		return fmt.Errorf("invalid add subscription step: %d", state.Step)
	}
	c.step, c.cityID, c.categoryID = state.Step, state.CityID, state.CategoryID
	return nil
}

func (c *addSubscriptionCommand) Run() {
	_, _ = sendWithLogError(c.api, c.inputs[c.step].InitMessage())
}

func (c *addSubscriptionCommand) OnUserInput(input string) {

	previous := c.step
	msg := c.inputs[c.step].HandleInput(input)

	if previous == c.step {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	if c.step != addStepDone {
		_, _ = sendWithLogError(c.api, c.inputs[c.step].InitMessage())
		return
	}

	c.addSubscription()
	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *addSubscriptionCommand) addSubscription() {

	ctx := context.Background()

	city, err := c.references.CityByID(ctx, c.cityID)
	if err == nil && city == nil {
		err = fmt.Errorf("city %d not found", c.cityID)
	}
	var category *models.Category
	if err == nil {
		category, err = c.references.CategoryByID(ctx, c.categoryID)
		if err == nil && category == nil {
			err = fmt.Errorf("category %d not found", c.categoryID)
		}
	}
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Внутрішня помилка!", c.finalMessageKeyboard))
		return
	}

	created, err := c.subscriptions.Add(ctx, models.NewSubscription(c.chatID, city.ID, category.ID))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Внутрішня помилка!", c.finalMessageKeyboard))
		return
	}

	if !created {
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID,
			fmt.Sprintf("Ви вже підписані на %s, %s.", city.Name, category.Name), c.finalMessageKeyboard))
		return
	}

	c.bus.Publish(events.ChatActionTopic, events.ChatAction{
		ChatID: c.chatID,
		Action: models.ActionSubscribed,
		Meta:   map[string]any{"city": city.Name, "category": category.Name},
	})

	_, _ = sendWithLogError(c.api, finalMessage(c.chatID,
		fmt.Sprintf("Підписку на %s, %s додано! Шукаю останні вакансії...", city.Name, category.Name),
		c.finalMessageKeyboard))

	delivered, err := c.pipeline.SubscribeAndDeliver(ctx, c.chatID, *city, *category)
	if err != nil {
		log.Errorf("failed to deliver latest vacancies to chat %d: %v", c.chatID, err)
	}
	if delivered == 0 {
		_, _ = sendWithLogError(c.api, botApi.NewMessage(c.chatID,
			"Поки що вакансій немає. Я надішлю нові, щойно вони з'являться."))
	}
}
