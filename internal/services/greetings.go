package services

import (
	"context"
	"errors"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"strings"
)

var ErrEmptyGreeting = errors.New("greeting text is empty")

const DefaultGreeting = "Привіт! Я надсилатиму нові вакансії з jobs.dou.ua за обраними містом та категорією.\n" +
	"Натисніть \"Додати підписку\", щоб почати."

type greetingRepository interface {
	Get(ctx context.Context) (*models.Greeting, error)
	Save(ctx context.Context, text string) error
}

type Greetings struct {
	greetings greetingRepository
}

func NewGreetings(greetings greetingRepository) *Greetings {
	return &Greetings{greetings: greetings}
}

// Get falls back to the default text when nothing is stored or the store fails.
func (g *Greetings) Get(ctx context.Context) string {
	greeting, err := g.greetings.Get(ctx)
	if err != nil || greeting == nil || strings.TrimSpace(greeting.Text) == "" {
		return DefaultGreeting
	}
	return greeting.Text
}

func (g *Greetings) Set(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyGreeting
	}
	return g.greetings.Save(ctx, text)
}
