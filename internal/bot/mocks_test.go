package bot

import (
	"context"
	"errors"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/stretchr/testify/mock"
	"strings"
	"sync"
)

type mockApi struct {
	mu           sync.Mutex
	SentMessages []botApi.Chattable
	updates      chan botApi.Update
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, chattable)
	return botApi.Message{}, nil
}

func (m *mockApi) GetUpdatesChan(_ botApi.UpdateConfig) botApi.UpdatesChannel {
	if m.updates != nil {
		return m.updates
	}
	ch := make(chan botApi.Update)
	close(ch)
	return ch
}

func (m *mockApi) StopReceivingUpdates() {
	if m.updates != nil {
		close(m.updates)
	}
}

func (m *mockApi) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var texts []string
	for _, c := range m.SentMessages {
		if msg, ok := c.(botApi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (m *mockApi) LastText() string {
	texts := m.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

var (
	kyiv   = models.NewCity(1, "Київ", "city=Київ")
	lviv   = models.NewCity(2, "Львів", "city=Львів")
	golang = models.NewCategory(7, "Golang", "category=Golang")
	python = models.NewCategory(12, "Python", "category=Python")
)

type mockReferenceRepo struct {
	cities     []models.City
	categories []models.Category
}

func newMockReferenceRepo() *mockReferenceRepo {
	return &mockReferenceRepo{cities: []models.City{kyiv, lviv}, categories: []models.Category{golang, python}}
}

func (m *mockReferenceRepo) Cities(_ context.Context) ([]models.City, error) {
	return m.cities, nil
}

func (m *mockReferenceRepo) Categories(_ context.Context) ([]models.Category, error) {
	return m.categories, nil
}

func (m *mockReferenceRepo) CityByID(_ context.Context, id int) (*models.City, error) {
	for _, city := range m.cities {
		if city.ID == id {
			return &city, nil
		}
	}
	return nil, nil
}

func (m *mockReferenceRepo) CategoryByID(_ context.Context, id int) (*models.Category, error) {
	for _, category := range m.categories {
		if category.ID == id {
			return &category, nil
		}
	}
	return nil, nil
}

type mockSubscriptionRepo struct {
	mu            sync.Mutex
	Subscriptions []models.Subscription
	nextID        int
}

func (m *mockSubscriptionRepo) Add(_ context.Context, subscription *models.Subscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Subscriptions {
		if s.ChatID == subscription.ChatID && s.CityID == subscription.CityID && s.CategoryID == subscription.CategoryID {
			return false, nil
		}
	}
	m.nextID++
	subscription.ID = m.nextID
	m.Subscriptions = append(m.Subscriptions, *subscription)
	return true, nil
}

func (m *mockSubscriptionRepo) GetByChat(_ context.Context, chatID int64) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]models.Subscription, 0)
	for _, s := range m.Subscriptions {
		if s.ChatID == chatID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSubscriptionRepo) Remove(_ context.Context, id int, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.Subscriptions {
		if s.ID == id && s.ChatID == chatID {
			m.Subscriptions = append(m.Subscriptions[:i], m.Subscriptions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSubscriptionRepo) RemoveAllByChat(_ context.Context, chatID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.Subscription
	for _, s := range m.Subscriptions {
		if s.ChatID != chatID {
			kept = append(kept, s)
		}
	}
	removed := int64(len(m.Subscriptions) - len(kept))
	m.Subscriptions = kept
	return removed, nil
}

type mockChatRepo struct {
	mu    sync.Mutex
	Chats map[int64]models.Chat
}

func (m *mockChatRepo) Register(_ context.Context, chatID int64, isAdmin bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Chats == nil {
		m.Chats = map[int64]models.Chat{}
	}
	_, exists := m.Chats[chatID]
	m.Chats[chatID] = models.Chat{ID: chatID, IsAdmin: isAdmin}
	return !exists, nil
}

func (m *mockChatRepo) GetByID(_ context.Context, chatID int64) (*models.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.Chats[chatID]
	if !ok {
		return nil, nil
	}
	return &chat, nil
}

type mockDataRepo struct {
	data map[string][]byte
}

func (m *mockDataRepo) Save(_ context.Context, id string, data []byte) error {
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[id] = data
	return nil
}

func (m *mockDataRepo) LoadAndRemove(_ context.Context, id string) ([]byte, error) {
	data := m.data[id]
	delete(m.data, id)
	return data, nil
}

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) SubscribeAndDeliver(ctx context.Context, chatID int64, city models.City, category models.Category) (int, error) {
	args := m.Called(ctx, chatID, city, category)
	return args.Int(0), args.Error(1)
}

type mockPosts struct {
	mock.Mock
}

func (m *mockPosts) Create(ctx context.Context, text string) (*models.Post, error) {
	args := m.Called(ctx, text)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockPosts) SetCity(ctx context.Context, id int, cityID *int) error {
	return m.Called(ctx, id, cityID).Error(0)
}

func (m *mockPosts) SetCategory(ctx context.Context, id int, categoryID *int) error {
	return m.Called(ctx, id, categoryID).Error(0)
}

func (m *mockPosts) Publish(ctx context.Context, id int) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockPosts) Delete(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

type mockGreetings struct {
	text string
}

func (m *mockGreetings) Get(_ context.Context) string {
	if m.text == "" {
		return "default greeting"
	}
	return m.text
}

func (m *mockGreetings) Set(_ context.Context, text string) error {
	if text == "" {
		return errors.New("empty")
	}
	m.text = text
	return nil
}

func simulateUserInput(cmd command, inputs []string) {
	for _, input := range inputs {
		cmd.OnUserInput(input)
	}
}

func textMessage(chatID int64, text string) *botApi.Message {
	msg := &botApi.Message{Text: text, Chat: &botApi.Chat{ID: chatID, Type: "private"}}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []botApi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return msg
}
