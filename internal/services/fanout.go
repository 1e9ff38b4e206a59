package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	"github.com/maxaizer/dou-jobs-bot/internal/repositories"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const DefaultFanoutBatchSize = 10

type deliveryRecordRepository interface {
	UnrecordedPairs(ctx context.Context) ([]repositories.DeliveryPair, error)
	CreateBatch(ctx context.Context, pairs []repositories.DeliveryPair) (int64, error)
	GetForChat(ctx context.Context, chatID int64, vacancyIDs []int) ([]models.DeliveryRecord, error)
}

// FanoutEngine creates a delivery record for every subscribed chat of every stored vacancy.
type FanoutEngine struct {
	deliveries deliveryRecordRepository
	batchSize  int
}

func NewFanoutEngine(deliveries deliveryRecordRepository, batchSize int) *FanoutEngine {
	if batchSize <= 0 {
		batchSize = DefaultFanoutBatchSize
	}
	return &FanoutEngine{deliveries: deliveries, batchSize: batchSize}
}

// ComputePendingDeliveries inserts the missing records batch by batch, every batch in its
// own transaction, and returns how many were created. Records committed before a failing
// batch stay in place.
func (f *FanoutEngine) ComputePendingDeliveries(ctx context.Context) (int, error) {

	pairs, err := f.deliveries.UnrecordedPairs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to compute unrecorded pairs: %w", err)
	}

	created := 0
	for _, chunk := range lo.Chunk(pairs, f.batchSize) {
		count, err := f.deliveries.CreateBatch(ctx, chunk)
		if err != nil {
			return created, fmt.Errorf("failed to create delivery records: %w", err)
		}
		created += int(count)
	}

	metrics.FanoutRecordsCounter.Add(float64(created))
	if created > 0 {
		log.Infof("fan-out created %d delivery records", created)
	}
	return created, nil
}

// Enqueue makes sure the chat has a record for each vacancy and returns them in the order
// of the given vacancies.
func (f *FanoutEngine) Enqueue(ctx context.Context, chatID int64, vacancies []models.Vacancy) ([]models.DeliveryRecord, error) {

	if len(vacancies) == 0 {
		return nil, nil
	}

	vacancyIDs := lo.Uniq(lo.Map(vacancies, func(v models.Vacancy, _ int) int { return v.ID }))
	pairs := lo.Map(vacancyIDs, func(id int, _ int) repositories.DeliveryPair {
		return repositories.DeliveryPair{ChatID: chatID, VacancyID: id}
	})

	for _, chunk := range lo.Chunk(pairs, f.batchSize) {
		if _, err := f.deliveries.CreateBatch(ctx, chunk); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to enqueue vacancies for chat %d: %v", chatID, err)
			return nil, err
		}
	}

	records, err := f.deliveries.GetForChat(ctx, chatID, vacancyIDs)
	if err != nil {
		return nil, err
	}

	byVacancy := lo.KeyBy(records, func(r models.DeliveryRecord) int { return r.VacancyID })
	ordered := make([]models.DeliveryRecord, 0, len(vacancyIDs))
	for _, id := range vacancyIDs {
		if record, ok := byVacancy[id]; ok {
			ordered = append(ordered, record)
		}
	}
	return ordered, nil
}
