package repositories

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"time"
)

// DeliveryPair is a (chat, vacancy) combination that should have a delivery record.
type DeliveryPair struct {
	ChatID    int64
	VacancyID int
}

type Deliveries struct {
	db *gorm.DB
}

func NewDeliveriesRepository(db *gorm.DB) *Deliveries {
	return &Deliveries{db: db}
}

const unrecordedPairsQuery = `
SELECT DISTINCT s.chat_id AS chat_id, vp.vacancy_id AS vacancy_id
FROM vacancy_parameters vp
JOIN subscriptions s ON s.city_id = vp.city_id AND s.category_id = vp.category_id
LEFT JOIN vacancy_chats vc ON vc.chat_id = s.chat_id AND vc.vacancy_id = vp.vacancy_id
WHERE vc.id IS NULL
ORDER BY vp.vacancy_id, s.chat_id`

// UnrecordedPairs returns subscribed (chat, vacancy) pairs without a delivery record.
func (repo *Deliveries) UnrecordedPairs(ctx context.Context) ([]DeliveryPair, error) {
	var pairs []DeliveryPair
	err := repo.db.WithContext(ctx).Raw(unrecordedPairsQuery).Scan(&pairs).Error
	return pairs, err
}

// CreateBatch inserts the records in one transaction skipping existing ones and returns
// how many were actually created.
func (repo *Deliveries) CreateBatch(ctx context.Context, pairs []DeliveryPair) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	records := lo.Map(pairs, func(p DeliveryPair, _ int) models.DeliveryRecord {
		return models.DeliveryRecord{ChatID: p.ChatID, VacancyID: p.VacancyID}
	})

	var created int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&records)
		created = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// GetForChat returns the chat's records for the given vacancies, in no particular order.
func (repo *Deliveries) GetForChat(ctx context.Context, chatID int64, vacancyIDs []int) ([]models.DeliveryRecord, error) {
	var records []models.DeliveryRecord
	if len(vacancyIDs) == 0 {
		return records, nil
	}
	err := repo.db.WithContext(ctx).
		Where("chat_id = ? AND vacancy_id IN ?", chatID, vacancyIDs).
		Find(&records).Error
	return records, err
}

func (repo *Deliveries) GetByID(ctx context.Context, id int) (*models.DeliveryRecord, error) {
	var record models.DeliveryRecord
	err := repo.db.WithContext(ctx).First(&record, "id = ?", id).Error
	return nilIfNotFound(&record, err)
}

// Pending returns unsent records below the attempt ceiling together with the vacancy text.
func (repo *Deliveries) Pending(ctx context.Context, maxAttempts int) ([]models.PendingDelivery, error) {
	var pending []models.PendingDelivery
	err := repo.db.WithContext(ctx).
		Table("vacancy_chats AS vc").
		Select("vc.id, vc.chat_id, vc.vacancy_id, vc.attempt, vc.sent_at, vc.created_at, v.text").
		Joins("JOIN vacancies v ON v.id = vc.vacancy_id").
		Where("vc.sent_at IS NULL AND vc.attempt < ?", maxAttempts).
		Order("vc.id").
		Scan(&pending).Error
	return pending, err
}

// MarkSent is a no-op for a record that is already sent.
func (repo *Deliveries) MarkSent(ctx context.Context, id int) error {
	return repo.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("id = ? AND sent_at IS NULL", id).
		Update("sent_at", time.Now()).Error
}

// IncrementAttempt bumps the counter in SQL so concurrent failures are not lost.
func (repo *Deliveries) IncrementAttempt(ctx context.Context, id int) error {
	return repo.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("id = ? AND sent_at IS NULL", id).
		Update("attempt", gorm.Expr("attempt + 1")).Error
}

func (repo *Deliveries) CountPending(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("sent_at IS NULL AND attempt < ?", maxAttempts).
		Count(&count).Error
	return count, err
}

func (repo *Deliveries) CountDead(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&models.DeliveryRecord{}).
		Where("sent_at IS NULL AND attempt >= ?", maxAttempts).
		Count(&count).Error
	return count, err
}
