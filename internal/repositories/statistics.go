package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
)

type Statistics struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) *Statistics {
	return &Statistics{db: db}
}

func (repo *Statistics) Add(ctx context.Context, statistic *models.Statistic) error {
	return repo.db.WithContext(ctx).Create(statistic).Error
}

func (repo *Statistics) CountByAction(ctx context.Context, action models.Action) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&models.Statistic{}).
		Where("action = ?", action).
		Count(&count).Error
	return count, err
}
