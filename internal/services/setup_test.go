package services

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/repositories"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type mockFeedClient struct {
	mock.Mock
}

func (m *mockFeedClient) Fetch(ctx context.Context, cityParam, categoryParam string) ([]models.FeedEntry, error) {
	args := m.Called(ctx, cityParam, categoryParam)
	entries, _ := args.Get(0).([]models.FeedEntry)
	return entries, args.Error(1)
}

type mockSender struct {
	mu      sync.Mutex
	failFor map[int64]error
	sent    map[int64][]string
	calls   map[int64]int
}

func newMockSender() *mockSender {
	return &mockSender{failFor: map[int64]error{}, sent: map[int64][]string{}, calls: map[int64]int{}}
}

func (m *mockSender) Send(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[chatID]++
	if err := m.failFor[chatID]; err != nil {
		return err
	}
	m.sent[chatID] = append(m.sent[chatID], text)
	return nil
}

type testEnv struct {
	dbCtx         *repositories.DbContext
	references    *repositories.References
	subscriptions *repositories.Subscriptions
	vacancies     *repositories.Vacancies
	deliveries    *repositories.Deliveries
	feed          *mockFeedClient
	sender        *mockSender
	fanout        *FanoutEngine
	delivery      *DeliveryWorker
	pipeline      *Pipeline
	kyiv          models.City
	golang        models.Category
}

func newTestEnv(t *testing.T, maxAttempts int) *testEnv {
	t.Helper()

	dbCtx, err := repositories.NewDbContext(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, dbCtx.Migrate())
	t.Cleanup(func() { _ = dbCtx.Close() })

	env := &testEnv{
		dbCtx:         dbCtx,
		references:    repositories.NewReferencesRepository(dbCtx.DB),
		subscriptions: repositories.NewSubscriptionsRepository(dbCtx.DB),
		vacancies:     repositories.NewVacanciesRepository(dbCtx.DB),
		deliveries:    repositories.NewDeliveriesRepository(dbCtx.DB),
		feed:          &mockFeedClient{},
		sender:        newMockSender(),
	}

	env.fanout = NewFanoutEngine(env.deliveries, DefaultFanoutBatchSize)
	env.delivery = NewDeliveryWorker(env.deliveries, env.sender, maxAttempts)
	env.pipeline = NewPipeline(env.feed, NewFeedNormalizer(DefaultMessageLimit), NewVacancyStore(env.vacancies),
		env.fanout, env.delivery, env.subscriptions, env.vacancies, PipelineOptions{})

	kyiv, err := env.references.CityByName(context.Background(), "Київ")
	require.NoError(t, err)
	golang, err := env.references.CategoryByName(context.Background(), "Golang")
	require.NoError(t, err)
	env.kyiv, env.golang = *kyiv, *golang

	return env
}

func (e *testEnv) subscribe(t *testing.T, chatIDs ...int64) {
	t.Helper()
	for _, chatID := range chatIDs {
		_, err := e.subscriptions.Add(context.Background(), models.NewSubscription(chatID, e.kyiv.ID, e.golang.ID))
		require.NoError(t, err)
	}
}

func (e *testEnv) count(t *testing.T, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.dbCtx.DB.Model(model).Count(&count).Error)
	return count
}

func (e *testEnv) record(t *testing.T, chatID int64, url string) models.DeliveryRecord {
	t.Helper()
	var record models.DeliveryRecord
	require.NoError(t, e.dbCtx.DB.
		Joins("JOIN vacancies v ON v.id = vacancy_chats.vacancy_id").
		Where("vacancy_chats.chat_id = ? AND v.url = ?", chatID, url).
		First(&record).Error)
	return record
}

func feedEntry(url, title string, publishedAt time.Time) models.FeedEntry {
	return models.FeedEntry{
		Title:       title,
		Body:        `<div class="requirements"><div class="text">Go</div></div>`,
		Link:        url,
		PublishedAt: &publishedAt,
	}
}
