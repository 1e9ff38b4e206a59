package repositories

import (
	"context"
	"errors"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"gorm.io/gorm"
)

type References struct {
	db *gorm.DB
}

func NewReferencesRepository(db *gorm.DB) *References {
	return &References{db: db}
}

func (repo *References) Cities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := repo.db.WithContext(ctx).Order("id").Find(&cities).Error; err != nil {
		return nil, err
	}
	return cities, nil
}

func (repo *References) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := repo.db.WithContext(ctx).Order("id").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// CityByName returns nil when nothing matches.
func (repo *References) CityByName(ctx context.Context, name string) (*models.City, error) {
	var city models.City
	err := repo.db.WithContext(ctx).First(&city, "normalized_name = ?", models.NormalizeName(name)).Error
	return nilIfNotFound(&city, err)
}

// CategoryByName returns nil when nothing matches.
func (repo *References) CategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := repo.db.WithContext(ctx).First(&category, "normalized_name = ?", models.NormalizeName(name)).Error
	return nilIfNotFound(&category, err)
}

func (repo *References) CityByID(ctx context.Context, id int) (*models.City, error) {
	var city models.City
	err := repo.db.WithContext(ctx).First(&city, "id = ?", id).Error
	return nilIfNotFound(&city, err)
}

func (repo *References) CategoryByID(ctx context.Context, id int) (*models.Category, error) {
	var category models.Category
	err := repo.db.WithContext(ctx).First(&category, "id = ?", id).Error
	return nilIfNotFound(&category, err)
}

func nilIfNotFound[T any](value *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}
