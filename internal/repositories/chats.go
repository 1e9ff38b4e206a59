package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Chats struct {
	db *gorm.DB
}

func NewChatsRepository(db *gorm.DB) *Chats {
	return &Chats{db: db}
}

// Register inserts the chat or refreshes its admin flag. Returns true when the chat is new.
func (repo *Chats) Register(ctx context.Context, chatID int64, isAdmin bool) (bool, error) {
	res := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Chat{ID: chatID, IsAdmin: isAdmin})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	err := repo.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", chatID).
		Update("is_admin", isAdmin).Error
	return false, err
}

func (repo *Chats) GetByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	var chat models.Chat
	err := repo.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error
	return nilIfNotFound(&chat, err)
}
