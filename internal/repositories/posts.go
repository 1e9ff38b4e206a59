package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
	"time"
)

type Posts struct {
	db *gorm.DB
}

func NewPostsRepository(db *gorm.DB) *Posts {
	return &Posts{db: db}
}

func (repo *Posts) Create(ctx context.Context, post *models.Post) error {
	return repo.db.WithContext(ctx).Create(post).Error
}

func (repo *Posts) GetByID(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	err := repo.db.WithContext(ctx).First(&post, "id = ?", id).Error
	return nilIfNotFound(&post, err)
}

// SetCity updates the filter, nil clears it.
func (repo *Posts) SetCity(ctx context.Context, id int, cityID *int) (bool, error) {
	return repo.update(ctx, id, "city_id", cityID)
}

// SetCategory updates the filter, nil clears it.
func (repo *Posts) SetCategory(ctx context.Context, id int, categoryID *int) (bool, error) {
	return repo.update(ctx, id, "category_id", categoryID)
}

func (repo *Posts) MarkSent(ctx context.Context, id int) (bool, error) {
	return repo.update(ctx, id, "sent_at", time.Now())
}

func (repo *Posts) Delete(ctx context.Context, id int) (bool, error) {
	res := repo.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (repo *Posts) update(ctx context.Context, id int, column string, value any) (bool, error) {
	res := repo.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND sent_at IS NULL", id).
		Update(column, value)
	return res.RowsAffected > 0, res.Error
}
