package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Data is a key/value store for blobs that must outlive a restart, e.g. chat conversations.
type Data struct {
	db *gorm.DB
}

func NewDataRepository(db *gorm.DB) *Data {
	return &Data{db: db}
}

// Save replaces the value stored under key.
func (repo *Data) Save(ctx context.Context, key string, value []byte) error {
	err := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.ArbitraryData{ID: key, Value: value}).Error
	return errors.Wrapf(err, "failed to save %q", key)
}

// LoadAndRemove returns nil when nothing is stored under key.
func (repo *Data) LoadAndRemove(ctx context.Context, key string) ([]byte, error) {

	var value []byte
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ArbitraryData{}
		if err := tx.Take(&row, "id = ?", key).Error; err != nil {
			return err
		}
		value = row.Value
		return tx.Delete(&models.ArbitraryData{}, "id = ?", key).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %q", key)
	}
	return value, nil
}
