package bot

import (
	"context"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/events"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
)

type removeSubscriptionCommand struct {
	api                  apiInterface
	chatID               int64
	bus                  EventBus.Bus
	subscriptions        subscriptionRepository
	input                inputHandler
	subscription         *models.Subscription
	finishCallback       func()
	finalMessageKeyboard *botApi.ReplyKeyboardMarkup
}

func newRemoveSubscriptionCommand(api apiInterface, chatID int64, bus EventBus.Bus,
	subscriptions subscriptionRepository) (*removeSubscriptionCommand, error) {

	cmd := &removeSubscriptionCommand{api: api, chatID: chatID, bus: bus, subscriptions: subscriptions}
	input, err := newSubscriptionInput(chatID, subscriptions, func(s *models.Subscription) {
		cmd.subscription = s
	})
	if err != nil {
		return nil, err
	}
	cmd.input = input
	return cmd, nil
}

func (c *removeSubscriptionCommand) WithFinishCallback(callback func()) {
	c.finishCallback = callback
}

func (c *removeSubscriptionCommand) WithKeyboardOnFinalMessage(keyboard botApi.ReplyKeyboardMarkup) {
	c.finalMessageKeyboard = &keyboard
}

func (c *removeSubscriptionCommand) Run() {
	_, _ = sendWithLogError(c.api, c.input.InitMessage())
}

func (c *removeSubscriptionCommand) OnUserInput(input string) {

	msg := c.input.HandleInput(input)

	if c.subscription == nil {
		_, _ = sendWithLogError(c.api, msg)
		return
	}

	c.removeSubscription(*c.subscription)

	if c.finishCallback != nil {
		c.finishCallback()
	}
}

func (c *removeSubscriptionCommand) removeSubscription(subscription models.Subscription) {

	removed, err := c.subscriptions.Remove(context.Background(), subscription.ID, c.chatID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
		_, _ = sendWithLogError(c.api, finalMessage(c.chatID, "Внутрішня помилка!", c.finalMessageKeyboard))
		return
	}

	if removed {
		c.bus.Publish(events.ChatActionTopic, events.ChatAction{
			ChatID: c.chatID,
			Action: models.ActionUnsubscribed,
			Meta:   map[string]any{"city": subscription.City.Name, "category": subscription.Category.Name},
		})
	}

	_, _ = sendWithLogError(c.api, finalMessage(c.chatID,
		fmt.Sprintf("Підписку на %s, %s видалено.", subscription.City.Name, subscription.Category.Name),
		c.finalMessageKeyboard))
}
