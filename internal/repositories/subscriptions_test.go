package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func Test_Subscriptions_AddRejectsDuplicates(t *testing.T) {
	dbCtx := newTestDbContext(t)
	subscriptions := NewSubscriptionsRepository(dbCtx.DB)
	ctx := context.Background()

	created, err := subscriptions.Add(ctx, models.NewSubscription(1, 1, 7))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = subscriptions.Add(ctx, models.NewSubscription(1, 1, 7))
	require.NoError(t, err)
	assert.False(t, created)

	list, err := subscriptions.GetByChat(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Київ", list[0].City.Name)
	assert.Equal(t, "Golang", list[0].Category.Name)
}

func Test_Subscriptions_RemoveOnlyOwn(t *testing.T) {
	dbCtx := newTestDbContext(t)
	subscriptions := NewSubscriptionsRepository(dbCtx.DB)
	ctx := context.Background()

	subscription := models.NewSubscription(1, 1, 7)
	_, err := subscriptions.Add(ctx, subscription)
	require.NoError(t, err)

	removed, err := subscriptions.Remove(ctx, subscription.ID, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = subscriptions.Remove(ctx, subscription.ID, 1)
	require.NoError(t, err)
	assert.True(t, removed)
}

func Test_Subscriptions_PairsAndMatchingChats(t *testing.T) {
	dbCtx := newTestDbContext(t)
	subscriptions := NewSubscriptionsRepository(dbCtx.DB)
	ctx := context.Background()

	for _, s := range []*models.Subscription{
		models.NewSubscription(1, 1, 7),
		models.NewSubscription(2, 1, 7),
		models.NewSubscription(2, 2, 12),
		models.NewSubscription(3, 2, 7),
	} {
		_, err := subscriptions.Add(ctx, s)
		require.NoError(t, err)
	}

	pairs, err := subscriptions.SubscribedPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Київ/Golang", "Львів/Golang", "Львів/Python"},
		lo.Map(pairs, func(p models.SearchPair, _ int) string { return p.City.Name + "/" + p.Category.Name }))

	golang := 7
	lviv := 2

	chats, err := subscriptions.ChatIDsMatching(ctx, nil, &golang)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, chats)

	chats, err = subscriptions.ChatIDsMatching(ctx, &lviv, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, chats)

	chats, err = subscriptions.ChatIDsMatching(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, chats)

	removed, err := subscriptions.RemoveAllByChat(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
}
