package bot

import (
	"context"
	"fmt"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

var errorNoSubscriptions = errors.New("chat has no subscriptions")

type subscriptionInput struct {
	chatID        int64
	subscriptions []models.Subscription
	onFinish      func(subscription *models.Subscription)
}

func newSubscriptionInput(chatID int64, subscriptionRepo subscriptionRepository,
	onFinish func(subscription *models.Subscription)) (*subscriptionInput, error) {

	subscriptions, err := subscriptionRepo.GetByChat(context.Background(), chatID)
	if err != nil {
		return nil, err
	}
	if len(subscriptions) == 0 {
		return nil, errorNoSubscriptions
	}
	return &subscriptionInput{chatID: chatID, subscriptions: subscriptions, onFinish: onFinish}, nil
}

func (s *subscriptionInput) InitMessage() botApi.Chattable {
	msg := botApi.NewMessage(s.chatID, "Введіть номер підписки:\n"+subscriptionsToText(s.subscriptions))
	msg.ReplyMarkup = keyboardWithExit()
	return msg
}

func (s *subscriptionInput) HandleInput(input string) botApi.Chattable {

	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return botApi.NewMessage(s.chatID, "Введіть число!")
	}

	if number < 1 || number > len(s.subscriptions) {
		return botApi.NewMessage(s.chatID, "Немає підписки з таким номером.")
	}

	s.onFinish(&s.subscriptions[number-1])
	return nil
}

func subscriptionsToText(subscriptions []models.Subscription) string {
	var sb strings.Builder
	for i, subscription := range subscriptions {
		sb.WriteString(fmt.Sprintf("%d: %s, %s\n", i+1, subscription.City.Name, subscription.Category.Name))
	}
	return sb.String()
}
