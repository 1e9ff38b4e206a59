package services

import (
	"context"
	"errors"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func newTestPosts(t *testing.T) (*Posts, *testEnv) {
	env := newTestEnv(t, DefaultMaxAttempts)
	posts := NewPosts(repositories.NewPostsRepository(env.dbCtx.DB), env.subscriptions, env.sender)
	return posts, env
}

func Test_Posts_PublishToMatchingChats(t *testing.T) {

	posts, env := newTestPosts(t)
	ctx := context.Background()

	env.subscribe(t, 1, 2)
	lviv, err := env.references.CityByName(ctx, "Львів")
	require.NoError(t, err)
	_, err = env.subscriptions.Add(ctx, models.NewSubscription(2, lviv.ID, env.golang.ID))
	require.NoError(t, err)
	_, err = env.subscriptions.Add(ctx, models.NewSubscription(3, lviv.ID, env.golang.ID))
	require.NoError(t, err)

	post, err := posts.Create(ctx, "Hello, Kyiv")
	require.NoError(t, err)
	require.NoError(t, posts.SetCity(ctx, post.ID, &env.kyiv.ID))

	sent, err := posts.Publish(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, []string{"Hello, Kyiv"}, env.sender.sent[1])
	assert.Equal(t, []string{"Hello, Kyiv"}, env.sender.sent[2])
	assert.Empty(t, env.sender.sent[3])

	_, err = posts.Publish(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostAlreadySent)
	assert.ErrorIs(t, posts.SetCategory(ctx, post.ID, &env.golang.ID), ErrPostAlreadySent)
}

func Test_Posts_PublishWithoutFiltersReachesEveryChatOnce(t *testing.T) {

	posts, env := newTestPosts(t)
	ctx := context.Background()

	env.subscribe(t, 1, 2)
	lviv, err := env.references.CityByName(ctx, "Львів")
	require.NoError(t, err)
	_, err = env.subscriptions.Add(ctx, models.NewSubscription(2, lviv.ID, env.golang.ID))
	require.NoError(t, err)

	env.sender.failFor[1] = errors.New("Forbidden: bot was blocked by the user")

	post, err := posts.Create(ctx, "Hello")
	require.NoError(t, err)

	sent, err := posts.Publish(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, env.sender.calls[1])
	assert.Equal(t, 1, env.sender.calls[2])
}

func Test_Posts_Errors(t *testing.T) {

	posts, _ := newTestPosts(t)
	ctx := context.Background()

	_, err := posts.Create(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyPost)

	_, err = posts.Publish(ctx, 404)
	assert.ErrorIs(t, err, ErrPostNotFound)

	assert.ErrorIs(t, posts.Delete(ctx, 404), ErrPostNotFound)
	assert.ErrorIs(t, posts.SetCity(ctx, 404, nil), ErrPostNotFound)

	post, err := posts.Create(ctx, "draft")
	require.NoError(t, err)
	require.NoError(t, posts.Delete(ctx, post.ID))
	_, err = posts.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func Test_Greetings_DefaultAndOverride(t *testing.T) {

	env := newTestEnv(t, DefaultMaxAttempts)
	greetings := NewGreetings(repositories.NewGreetingsRepository(env.dbCtx.DB))
	ctx := context.Background()

	assert.Equal(t, DefaultGreeting, greetings.Get(ctx))

	require.NoError(t, greetings.Set(ctx, "Вітаю!"))
	assert.Equal(t, "Вітаю!", greetings.Get(ctx))

	assert.ErrorIs(t, greetings.Set(ctx, ""), ErrEmptyGreeting)
	assert.Equal(t, "Вітаю!", greetings.Get(ctx))
}
