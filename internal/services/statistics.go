package services

import (
	"context"
	"encoding/json"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/events"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	log "github.com/sirupsen/logrus"
)

type statisticRepository interface {
	Add(ctx context.Context, statistic *models.Statistic) error
}

// StatisticsRecorder persists chat actions published on the bus.
type StatisticsRecorder struct {
	statistics statisticRepository
}

func NewStatisticsRecorder(bus EventBus.Bus, statistics statisticRepository) (*StatisticsRecorder, error) {
	r := &StatisticsRecorder{statistics: statistics}
	if err := bus.Subscribe(events.ChatActionTopic, r.onChatAction); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *StatisticsRecorder) onChatAction(event events.ChatAction) {

	meta := ""
	if len(event.Meta) > 0 {
		data, err := json.Marshal(event.Meta)
		if err != nil {
			log.Errorf("failed to marshal %s action meta: %v", event.Action, err)
		} else {
			meta = string(data)
		}
	}

	err := r.statistics.Add(context.Background(), &models.Statistic{
		Action: event.Action,
		ChatID: event.ChatID,
		Meta:   meta,
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to save %s action: %v", event.Action, err)
	}
}
