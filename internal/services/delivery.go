package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const DefaultMaxAttempts = 10

type MessageSender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type deliveryRepository interface {
	Pending(ctx context.Context, maxAttempts int) ([]models.PendingDelivery, error)
	MarkSent(ctx context.Context, id int) error
	IncrementAttempt(ctx context.Context, id int) error
}

type DeliveryReport struct {
	Sent   int
	Failed int
}

// DeliveryWorker sends pending delivery records. A failed send only bumps the attempt
// counter, records that reach maxAttempts are left unsent.
type DeliveryWorker struct {
	deliveries  deliveryRepository
	sender      MessageSender
	maxAttempts int
}

func NewDeliveryWorker(deliveries deliveryRepository, sender MessageSender, maxAttempts int) *DeliveryWorker {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &DeliveryWorker{deliveries: deliveries, sender: sender, maxAttempts: maxAttempts}
}

func (w *DeliveryWorker) MaxAttempts() int {
	return w.maxAttempts
}

func (w *DeliveryWorker) DeliverPending(ctx context.Context) (DeliveryReport, error) {

	var report DeliveryReport

	pending, err := w.deliveries.Pending(ctx, w.maxAttempts)
	if err != nil {
		return report, fmt.Errorf("failed to get pending deliveries: %w", err)
	}

	for _, delivery := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if w.send(ctx, delivery.DeliveryRecord, delivery.Text) {
			report.Sent++
		} else {
			report.Failed++
		}
	}

	if len(pending) > 0 {
		log.Infof("delivery finished: sent %d, failed %d", report.Sent, report.Failed)
	}
	return report, nil
}

// DeliverOne sends a single record and reports whether it was delivered. Records that are
// already sent or dead are skipped.
func (w *DeliveryWorker) DeliverOne(ctx context.Context, record models.DeliveryRecord, vacancy models.Vacancy) bool {
	if record.IsSent() || record.IsDead(w.maxAttempts) {
		return false
	}
	return w.send(ctx, record, vacancy.Text)
}

func (w *DeliveryWorker) send(ctx context.Context, record models.DeliveryRecord, text string) bool {

	if err := w.sender.Send(ctx, record.ChatID, text); err != nil {
		metrics.DeliveriesCounter.WithLabelValues("failed").Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("failed to deliver vacancy %d to chat %d (attempt %d): %v",
				record.VacancyID, record.ChatID, record.Attempt+1, err)

		if err = w.deliveries.IncrementAttempt(ctx, record.ID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to increment attempt of delivery %d: %v", record.ID, err)
		}
		return false
	}

	metrics.DeliveriesCounter.WithLabelValues("sent").Inc()
	if err := w.deliveries.MarkSent(ctx, record.ID); err != nil {
		// the message is out, the next pass may send it again
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to mark delivery %d as sent: %v", record.ID, err)
	}
	return true
}
