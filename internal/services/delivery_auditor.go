package services

import (
	"context"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type DeliveryAuditRepository interface {
	CountPending(ctx context.Context, maxAttempts int) (int64, error)
	CountDead(ctx context.Context, maxAttempts int) (int64, error)
}

// DeliveryAuditor reports undelivered records. Dead records are kept for inspection.
type DeliveryAuditor struct {
	deliveries  DeliveryAuditRepository
	maxAttempts int
}

func NewDeliveryAuditor(deliveries DeliveryAuditRepository, maxAttempts int) *DeliveryAuditor {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &DeliveryAuditor{deliveries: deliveries, maxAttempts: maxAttempts}
}

func (a *DeliveryAuditor) Audit(ctx context.Context) {

	pending, err := a.deliveries.CountPending(ctx, a.maxAttempts)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to count pending deliveries: %v", err)
		return
	}

	dead, err := a.deliveries.CountDead(ctx, a.maxAttempts)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to count dead deliveries: %v", err)
		return
	}

	metrics.DeliveryRecordsGauge.WithLabelValues("pending").Set(float64(pending))
	metrics.DeliveryRecordsGauge.WithLabelValues("dead").Set(float64(dead))

	if dead > 0 {
		log.Warnf("%d deliveries exhausted %d attempts", dead, a.maxAttempts)
	}
	log.Infof("delivery audit: %d pending, %d dead", pending, dead)
}
