package models

import "time"

type Subscription struct {
	ID         int
	ChatID     int64 `gorm:"uniqueIndex:idx_subscription_chat_city_category"`
	CityID     int   `gorm:"uniqueIndex:idx_subscription_chat_city_category;index:idx_subscription_city_category"`
	CategoryID int   `gorm:"uniqueIndex:idx_subscription_chat_city_category;index:idx_subscription_city_category"`
	CreatedAt  time.Time

	City     City     `gorm:"foreignKey:CityID"`
	Category Category `gorm:"foreignKey:CategoryID"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func NewSubscription(chatID int64, cityID, categoryID int) *Subscription {
	return &Subscription{ChatID: chatID, CityID: cityID, CategoryID: categoryID}
}

// SearchPair is a distinct (city, category) combination someone is subscribed to.
type SearchPair struct {
	City     City
	Category Category
}
