package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/events"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
	"slices"
	"sync"
)

const userContextsKey = "user_contexts"

type Repositories struct {
	Chats         chatRepository
	Subscriptions subscriptionRepository
	References    referenceRepository
	Data          dataRepository
}

type Services struct {
	Pipeline  subscribeDeliverer
	Posts     postService
	Greetings greetingService
}

type dataRepository interface {
	Save(ctx context.Context, id string, data []byte) error
	LoadAndRemove(ctx context.Context, id string) ([]byte, error)
}

type chatRepository interface {
	Register(ctx context.Context, chatID int64, isAdmin bool) (bool, error)
	GetByID(ctx context.Context, chatID int64) (*models.Chat, error)
}

type subscriptionRepository interface {
	Add(ctx context.Context, subscription *models.Subscription) (bool, error)
	GetByChat(ctx context.Context, chatID int64) ([]models.Subscription, error)
	Remove(ctx context.Context, id int, chatID int64) (bool, error)
	RemoveAllByChat(ctx context.Context, chatID int64) (int64, error)
}

type referenceRepository interface {
	Cities(ctx context.Context) ([]models.City, error)
	Categories(ctx context.Context) ([]models.Category, error)
	CityByID(ctx context.Context, id int) (*models.City, error)
	CategoryByID(ctx context.Context, id int) (*models.Category, error)
}

type subscribeDeliverer interface {
	SubscribeAndDeliver(ctx context.Context, chatID int64, city models.City, category models.Category) (int, error)
}

type postService interface {
	Create(ctx context.Context, text string) (*models.Post, error)
	SetCity(ctx context.Context, id int, cityID *int) error
	SetCategory(ctx context.Context, id int, categoryID *int) error
	Publish(ctx context.Context, id int) (int, error)
	Delete(ctx context.Context, id int) error
}

type greetingService interface {
	Get(ctx context.Context) string
	Set(ctx context.Context, text string) error
}

type updatesApi interface {
	apiInterface
	GetUpdatesChan(config botApi.UpdateConfig) botApi.UpdatesChannel
	StopReceivingUpdates()
}

type actionHandler func(ctx context.Context, uc *userContext) error

type Bot struct {
	api          updatesApi
	bus          EventBus.Bus
	repositories Repositories
	services     Services
	adminChatIDs []int64
	actions      map[actionID]actionHandler
	mu           sync.Mutex
	userContexts map[int64]*userContext
	runDone      chan struct{}
	wg           sync.WaitGroup
}

func NewBot(api updatesApi, bus EventBus.Bus, repositories Repositories, services Services,
	adminChatIDs []int64) (*Bot, error) {

	if api == nil {
		return nil, errors.New("api is nil")
	}

	if bus == nil {
		return nil, errors.New("bus is nil")
	}

	if repositories.Chats == nil || repositories.Subscriptions == nil ||
		repositories.References == nil || repositories.Data == nil {
		return nil, errors.New("all repositories are required")
	}

	if services.Pipeline == nil || services.Posts == nil || services.Greetings == nil {
		return nil, errors.New("all services are required")
	}

	b := &Bot{
		api:          api,
		bus:          bus,
		repositories: repositories,
		services:     services,
		adminChatIDs: adminChatIDs,
		userContexts: make(map[int64]*userContext),
	}

	b.actions = map[actionID]actionHandler{
		actionStart:       b.start,
		actionAdd:         b.runCommand(actionAdd),
		actionList:        b.listSubscriptions,
		actionRemove:      b.runCommand(actionRemove),
		actionUnsubscribe: b.unsubscribeAll,
		actionHelp:        b.help,
		actionMenu:        b.backToMenu,
		actionGreeting:    b.runCommand(actionGreeting),
		actionPost:        b.runCommand(actionPost),
		actionCancel:      b.backToMenu,
	}

	return b, nil
}

// Run blocks until Stop is called.
func (b *Bot) Run() {

	if err := b.loadUserContexts(); err != nil {
		log.Errorf("Error loading user contexts: %v", err)
	}

	done := make(chan struct{})
	defer close(done)
	b.mu.Lock()
	b.runDone = done
	b.mu.Unlock()

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)

	for update := range updates {

		if update.Message == nil {
			continue
		}

		if !update.Message.Chat.IsPrivate() {
			continue
		}

		b.wg.Add(1)
		go func(message *botApi.Message) {
			defer b.wg.Done()
			b.handleMessage(message)
		}(update.Message)
	}
}

// Stop waits for the updates loop to end, so no handler is added after the wait starts.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()

	b.mu.Lock()
	done := b.runDone
	b.mu.Unlock()
	if done != nil {
		<-done
	}
	b.wg.Wait()

	if err := b.saveUserContexts(); err != nil {
		log.Errorf("Error saving user contexts: %v", err)
	}
}

func (b *Bot) handleMessage(message *botApi.Message) {

	chatID := message.Chat.ID
	uc := b.userContext(chatID)
	uc.mu.Lock()
	defer uc.mu.Unlock()

	id, isAction, known := resolveAction(message)
	if !isAction {
		b.handleInput(uc, message.Text)
		return
	}

	if !known {
		_, _ = sendWithLogError(b.api, botApi.NewMessage(chatID, "Невідома команда!"))
		return
	}

	b.handleAction(uc, id)
}

func (b *Bot) handleAction(uc *userContext, id actionID) {

	ctx := context.Background()

	if isAdminAction(id) && !b.isAdmin(ctx, uc) {
		_, _ = sendWithLogError(b.api, botApi.NewMessage(uc.chatID, "Ця дія доступна лише адміністраторам."))
		return
	}

	handler, ok := b.actions[id]
	if !ok {
		_, _ = sendWithLogError(b.api, botApi.NewMessage(uc.chatID, "Невідома команда!"))
		return
	}

	if err := handler(ctx, uc); err != nil {
		if errors.Is(err, errorNoSubscriptions) {
			_, _ = sendWithLogError(b.api, botApi.NewMessage(uc.chatID, "У вас немає жодної підписки."))
			return
		}
		log.Errorf("action %s failed for chat %d: %v", id, uc.chatID, err)
		_, _ = sendWithLogError(b.api, botApi.NewMessage(uc.chatID, "Внутрішня помилка!"))
	}
}

func (b *Bot) handleInput(uc *userContext, input string) {

	if uc.HasRunningCommand() {
		uc.OnUserInput(input)
		return
	}

	msg := botApi.NewMessage(uc.chatID, "Оберіть дію в меню.")
	msg.ReplyMarkup = defaultReplyKeyboard(uc.isAdmin)
	_, _ = sendWithLogError(b.api, msg)
}

func (b *Bot) start(ctx context.Context, uc *userContext) error {

	isAdmin := slices.Contains(b.adminChatIDs, uc.chatID)
	created, err := b.repositories.Chats.Register(ctx, uc.chatID, isAdmin)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to register chat %d: %v", uc.chatID, err)
		return err
	}

	uc.Reset()
	uc.isAdmin = isAdmin

	b.bus.Publish(events.ChatActionTopic, events.ChatAction{
		ChatID: uc.chatID,
		Action: models.ActionStart,
		Meta:   map[string]any{"new": created},
	})

	msg := botApi.NewMessage(uc.chatID, b.services.Greetings.Get(ctx))
	msg.ReplyMarkup = defaultReplyKeyboard(isAdmin)
	_, _ = sendWithLogError(b.api, msg)
	return nil
}

func (b *Bot) runCommand(id actionID) actionHandler {
	return func(ctx context.Context, uc *userContext) error {
		cmd, err := b.createCommand(id, uc.chatID)
		if err != nil {
			return err
		}
		uc.RunCommand(cmd, id)
		return nil
	}
}

func (b *Bot) createCommand(id actionID, chatID int64) (command, error) {

	switch id {
	case actionAdd:
		return newAddSubscriptionCommand(b.api, chatID, b.bus, b.repositories.Subscriptions,
			b.repositories.References, b.services.Pipeline)
	case actionRemove:
		return newRemoveSubscriptionCommand(b.api, chatID, b.bus, b.repositories.Subscriptions)
	case actionGreeting:
		return newGreetingCommand(b.api, chatID, b.services.Greetings), nil
	case actionPost:
		return newPostCommand(b.api, chatID, b.services.Posts, b.repositories.References)
	default:
		return nil, fmt.Errorf("unknown command: %v", id)
	}
}

func (b *Bot) listSubscriptions(ctx context.Context, uc *userContext) error {

	subscriptions, err := b.repositories.Subscriptions.GetByChat(ctx, uc.chatID)
	if err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return errorNoSubscriptions
	}

	msg := botApi.NewMessage(uc.chatID, "Ваші підписки:\n"+subscriptionsToText(subscriptions))
	msg.ReplyMarkup = defaultReplyKeyboard(uc.isAdmin)
	_, _ = sendWithLogError(b.api, msg)
	return nil
}

func (b *Bot) unsubscribeAll(ctx context.Context, uc *userContext) error {

	removed, err := b.repositories.Subscriptions.RemoveAllByChat(ctx, uc.chatID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return errorNoSubscriptions
	}

	uc.Reset()
	b.bus.Publish(events.ChatActionTopic, events.ChatAction{
		ChatID: uc.chatID,
		Action: models.ActionUnsubscribed,
		Meta:   map[string]any{"all": true, "count": removed},
	})

	msg := botApi.NewMessage(uc.chatID, "Ви відписалися від усіх вакансій.")
	msg.ReplyMarkup = defaultReplyKeyboard(uc.isAdmin)
	_, _ = sendWithLogError(b.api, msg)
	return nil
}

func (b *Bot) help(_ context.Context, uc *userContext) error {
	text := "Я надсилаю нові вакансії з jobs.dou.ua.\n\n" +
		"/add - підписатися на місто та категорію\n" +
		"/list - мої підписки\n" +
		"/remove - видалити підписку\n" +
		"/unsubscribe - відписатися від усього\n" +
		"/cancel - скасувати поточну дію"
	if uc.isAdmin {
		text += "\n\n/greeting - змінити привітання\n/post - розіслати пост підписникам"
	}

	msg := botApi.NewMessage(uc.chatID, text)
	msg.ReplyMarkup = defaultReplyKeyboard(uc.isAdmin)
	_, _ = sendWithLogError(b.api, msg)
	return nil
}

func (b *Bot) backToMenu(_ context.Context, uc *userContext) error {
	uc.Reset()
	msg := botApi.NewMessage(uc.chatID, "Головне меню.")
	msg.ReplyMarkup = defaultReplyKeyboard(uc.isAdmin)
	_, _ = sendWithLogError(b.api, msg)
	return nil
}

func (b *Bot) isAdmin(ctx context.Context, uc *userContext) bool {
	chat, err := b.repositories.Chats.GetByID(ctx, uc.chatID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to get chat %d: %v", uc.chatID, err)
		return false
	}
	return chat != nil && chat.IsAdmin
}

func (b *Bot) userContext(chatID int64) *userContext {
	b.mu.Lock()
	defer b.mu.Unlock()

	uc := b.userContexts[chatID]
	if uc == nil {
		uc = newUserContext(chatID, slices.Contains(b.adminChatIDs, chatID))
		b.userContexts[chatID] = uc
	}
	return uc
}

func (b *Bot) saveUserContexts() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	running := make(map[int64]*userContext)
	for chatID, uc := range b.userContexts {
		if uc.HasRunningCommand() {
			running[chatID] = uc
		}
	}

	data, err := json.Marshal(running)
	if err != nil {
		return err
	}
	return b.repositories.Data.Save(context.Background(), userContextsKey, data)
}

func (b *Bot) loadUserContexts() error {
	data, err := b.repositories.Data.LoadAndRemove(context.Background(), userContextsKey)
	if err != nil || data == nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err = json.Unmarshal(data, &b.userContexts); err != nil {
		return err
	}

	var errs []error
	for chatID, uc := range b.userContexts {

		if uc.curCommandName == "" {
			continue
		}

		cmd, err := b.createCommand(uc.curCommandName, uc.chatID)
		if err != nil {
			errs = append(errs, err)
			delete(b.userContexts, chatID)
			continue
		}

		if saveableCmd, ok := cmd.(saveable); ok {
			if err = saveableCmd.LoadState(uc.curCommandState); err != nil {
				errs = append(errs, err)
				delete(b.userContexts, chatID)
				continue
			}
		}

		uc.ResumeCommandAfterBotRestart(cmd)
	}

	return errors.Join(errs...)
}
