package services

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
	"strings"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrPostAlreadySent = errors.New("post is already sent")
	ErrEmptyPost       = errors.New("post text is empty")
)

type postRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int) (*models.Post, error)
	SetCity(ctx context.Context, id int, cityID *int) (bool, error)
	SetCategory(ctx context.Context, id int, categoryID *int) (bool, error)
	MarkSent(ctx context.Context, id int) (bool, error)
	Delete(ctx context.Context, id int) (bool, error)
}

type chatMatcher interface {
	ChatIDsMatching(ctx context.Context, cityID, categoryID *int) ([]int64, error)
}

// Posts manages admin broadcasts to subscribers.
type Posts struct {
	posts  postRepository
	chats  chatMatcher
	sender MessageSender
}

func NewPosts(posts postRepository, chats chatMatcher, sender MessageSender) *Posts {
	return &Posts{posts: posts, chats: chats, sender: sender}
}

func (p *Posts) Create(ctx context.Context, text string) (*models.Post, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPost
	}
	post := &models.Post{Text: text}
	if err := p.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (p *Posts) Get(ctx context.Context, id int) (*models.Post, error) {
	post, err := p.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (p *Posts) SetCity(ctx context.Context, id int, cityID *int) error {
	return p.update(ctx, id, func() (bool, error) { return p.posts.SetCity(ctx, id, cityID) })
}

func (p *Posts) SetCategory(ctx context.Context, id int, categoryID *int) error {
	return p.update(ctx, id, func() (bool, error) { return p.posts.SetCategory(ctx, id, categoryID) })
}

func (p *Posts) Delete(ctx context.Context, id int) error {
	deleted, err := p.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrPostNotFound
	}
	return nil
}

// Publish sends the post to every chat subscribed to its city and category and returns the
// number of chats reached. A post is published once.
func (p *Posts) Publish(ctx context.Context, id int) (int, error) {

	post, err := p.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if post.IsSent() {
		return 0, ErrPostAlreadySent
	}

	chatIDs, err := p.chats.ChatIDsMatching(ctx, post.CityID, post.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("failed to get post recipients: %w", err)
	}

	// mark first so a concurrent publish can't send the post twice
	marked, err := p.posts.MarkSent(ctx, id)
	if err != nil {
		return 0, err
	}
	if !marked {
		return 0, ErrPostAlreadySent
	}

	sent := 0
	for _, chatID := range chatIDs {
		if err = p.sender.Send(ctx, chatID, post.Text); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
				Errorf("failed to send post %d to chat %d: %v", id, chatID, err)
			continue
		}
		sent++
	}

	log.Infof("post %d was sent to %d of %d chats", id, sent, len(chatIDs))
	return sent, nil
}

func (p *Posts) update(ctx context.Context, id int, apply func() (bool, error)) error {
	updated, err := apply()
	if err != nil {
		return err
	}
	if updated {
		return nil
	}

	post, err := p.Get(ctx, id)
	if err != nil {
		return err
	}
	if post.IsSent() {
		return ErrPostAlreadySent
	}
	return nil
}
