package models

import "time"

// FeedEntry is a raw item of the vacancies feed before normalization.
type FeedEntry struct {
	Title       string
	Body        string
	Link        string
	PublishedAt *time.Time
}

type Vacancy struct {
	ID          int
	URL         string `gorm:"uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Text        string `gorm:"not null"`
	PublishedAt time.Time
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func (Vacancy) TableName() string {
	return "vacancies"
}

// VacancyParameters records which (city, category) search surfaced a vacancy.
type VacancyParameters struct {
	ID         int
	VacancyID  int `gorm:"uniqueIndex:idx_vacancy_parameters"`
	CityID     int `gorm:"uniqueIndex:idx_vacancy_parameters;index:idx_vacancy_parameters_city_category"`
	CategoryID int `gorm:"uniqueIndex:idx_vacancy_parameters;index:idx_vacancy_parameters_city_category"`
	CreatedAt  time.Time
}

func (VacancyParameters) TableName() string {
	return "vacancy_parameters"
}

// DeliveryRecord tracks delivery of one vacancy to one chat. SentAt == nil means the
// vacancy is still pending, or dead-lettered once Attempt reaches the ceiling.
type DeliveryRecord struct {
	ID        int
	ChatID    int64 `gorm:"uniqueIndex:idx_vacancy_chat"`
	VacancyID int   `gorm:"uniqueIndex:idx_vacancy_chat"`
	Attempt   int   `gorm:"not null;default:0"`
	SentAt    *time.Time
	CreatedAt time.Time
}

func (DeliveryRecord) TableName() string {
	return "vacancy_chats"
}

func (r DeliveryRecord) IsSent() bool {
	return r.SentAt != nil
}

// IsDead reports whether the record exhausted its retry budget.
func (r DeliveryRecord) IsDead(maxAttempts int) bool {
	return r.SentAt == nil && r.Attempt >= maxAttempts
}

// PendingDelivery is a delivery record joined with the text to send.
type PendingDelivery struct {
	DeliveryRecord
	Text string
}
