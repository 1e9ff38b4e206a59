package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptionsRepository(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Add returns false when the chat is already subscribed to the pair.
func (repo *Subscriptions) Add(ctx context.Context, subscription *models.Subscription) (bool, error) {
	res := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("City", "Category").
		Create(subscription)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (repo *Subscriptions) GetByChat(ctx context.Context, chatID int64) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := repo.db.WithContext(ctx).
		Preload("City").
		Preload("Category").
		Where("chat_id = ?", chatID).
		Order("id").
		Find(&subscriptions).Error
	return subscriptions, err
}

func (repo *Subscriptions) GetByID(ctx context.Context, id int) (*models.Subscription, error) {
	var subscription models.Subscription
	err := repo.db.WithContext(ctx).
		Preload("City").
		Preload("Category").
		First(&subscription, "id = ?", id).Error
	return nilIfNotFound(&subscription, err)
}

// Remove deletes the subscription only if it belongs to the chat.
func (repo *Subscriptions) Remove(ctx context.Context, id int, chatID int64) (bool, error) {
	res := repo.db.WithContext(ctx).Delete(&models.Subscription{}, "id = ? AND chat_id = ?", id, chatID)
	return res.RowsAffected > 0, res.Error
}

func (repo *Subscriptions) RemoveAllByChat(ctx context.Context, chatID int64) (int64, error) {
	res := repo.db.WithContext(ctx).Delete(&models.Subscription{}, "chat_id = ?", chatID)
	return res.RowsAffected, res.Error
}

type pairIDs struct {
	CityID     int
	CategoryID int
}

// SubscribedPairs returns every distinct (city, category) pair with at least one subscriber.
func (repo *Subscriptions) SubscribedPairs(ctx context.Context) ([]models.SearchPair, error) {
	var rows []pairIDs
	err := repo.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Distinct("city_id", "category_id").
		Order("city_id, category_id").
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return nil, err
	}

	cityIDs := lo.Uniq(lo.Map(rows, func(r pairIDs, _ int) int { return r.CityID }))
	categoryIDs := lo.Uniq(lo.Map(rows, func(r pairIDs, _ int) int { return r.CategoryID }))

	var cities []models.City
	if err = repo.db.WithContext(ctx).Find(&cities, cityIDs).Error; err != nil {
		return nil, err
	}

	var categories []models.Category
	if err = repo.db.WithContext(ctx).Find(&categories, categoryIDs).Error; err != nil {
		return nil, err
	}

	citiesByID := lo.KeyBy(cities, func(c models.City) int { return c.ID })
	categoriesByID := lo.KeyBy(categories, func(c models.Category) int { return c.ID })

	pairs := make([]models.SearchPair, 0, len(rows))
	for _, row := range rows {
		city, cityFound := citiesByID[row.CityID]
		category, categoryFound := categoriesByID[row.CategoryID]
		if !cityFound || !categoryFound {
			continue
		}
		pairs = append(pairs, models.SearchPair{City: city, Category: category})
	}
	return pairs, nil
}

// ChatIDsMatching returns distinct subscribed chats filtered by city and/or category,
// nil filter matches everything.
func (repo *Subscriptions) ChatIDsMatching(ctx context.Context, cityID, categoryID *int) ([]int64, error) {
	query := repo.db.WithContext(ctx).Model(&models.Subscription{})
	if cityID != nil {
		query = query.Where("city_id = ?", *cityID)
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}

	var chatIDs []int64
	err := query.Distinct().Order("chat_id").Pluck("chat_id", &chatIDs).Error
	return chatIDs, err
}
