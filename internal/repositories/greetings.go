package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
)

type Greetings struct {
	db *gorm.DB
}

func NewGreetingsRepository(db *gorm.DB) *Greetings {
	return &Greetings{db: db}
}

// Get returns nil if no greeting was saved yet.
func (repo *Greetings) Get(ctx context.Context) (*models.Greeting, error) {
	var greeting models.Greeting
	err := repo.db.WithContext(ctx).First(&greeting, "id = ?", models.GreetingID).Error
	return nilIfNotFound(&greeting, err)
}

func (repo *Greetings) Save(ctx context.Context, text string) error {
	return repo.db.WithContext(ctx).Save(&models.Greeting{ID: models.GreetingID, Text: text}).Error
}
