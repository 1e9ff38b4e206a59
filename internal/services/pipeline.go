package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/dou-jobs-bot/internal/domain/models"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	log "github.com/sirupsen/logrus"
	"time"
)

const DefaultFastPathLimit = 10

type FeedClient interface {
	Fetch(ctx context.Context, cityParam, categoryParam string) ([]models.FeedEntry, error)
}

type subscribedPairsRepository interface {
	SubscribedPairs(ctx context.Context) ([]models.SearchPair, error)
}

type processedVacancyRepository interface {
	LatestFor(ctx context.Context, cityID, categoryID, limit int) ([]models.Vacancy, error)
	MarkProcessed(ctx context.Context, maxAttempts int) (int64, error)
}

type PipelineOptions struct {
	FastPathLimit int
}

// Pipeline ties the feed, the store, the fan-out and the delivery together.
type Pipeline struct {
	feed          FeedClient
	normalizer    *FeedNormalizer
	store         *VacancyStore
	fanout        *FanoutEngine
	delivery      *DeliveryWorker
	subscriptions subscribedPairsRepository
	vacancies     processedVacancyRepository
	fastPathLimit int
}

func NewPipeline(feed FeedClient, normalizer *FeedNormalizer, store *VacancyStore, fanout *FanoutEngine,
	delivery *DeliveryWorker, subscriptions subscribedPairsRepository, vacancies processedVacancyRepository,
	options PipelineOptions) *Pipeline {

	if options.FastPathLimit <= 0 {
		options.FastPathLimit = DefaultFastPathLimit
	}

	return &Pipeline{
		feed:          feed,
		normalizer:    normalizer,
		store:         store,
		fanout:        fanout,
		delivery:      delivery,
		subscriptions: subscriptions,
		vacancies:     vacancies,
		fastPathLimit: options.FastPathLimit,
	}
}

// IngestFeedFor fetches and stores the feed of one pair. Errors are returned for the caller
// to log, they never affect other pairs.
func (p *Pipeline) IngestFeedFor(ctx context.Context, city models.City, category models.Category) ([]models.Vacancy, error) {

	log.Infof("getting feed for %s, %s", city.Name, category.Name)

	entries, err := p.feed.Fetch(ctx, city.Param, category.Param)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeFeedApi).
			Errorf("failed to fetch feed for %s, %s: %v", city.Name, category.Name, err)
		return nil, err
	}

	linked, err := p.store.Ingest(ctx, city, category, p.normalizer.Normalize(entries))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to ingest feed for %s, %s: %v", city.Name, category.Name, err)
		return linked, err
	}

	if len(linked) > 0 {
		log.Infof("%d new vacancies for %s, %s", len(linked), city.Name, category.Name)
	}
	return linked, nil
}

// RunFullPass runs ingestion for every subscribed pair, then fan-out, then delivery. A failing
// stage is logged and the next one still runs.
func (p *Pipeline) RunFullPass(ctx context.Context) {

	start := time.Now()
	log.Infof("running pipeline pass at %v", start)

	p.step("ingest", func() {
		pairs, err := p.subscriptions.SubscribedPairs(ctx)
		if err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to get subscribed pairs: %v", err)
			return
		}
		for _, pair := range pairs {
			if ctx.Err() != nil {
				return
			}
			_, _ = p.IngestFeedFor(ctx, pair.City, pair.Category)
		}
	})

	p.step("fanout", func() {
		if _, err := p.fanout.ComputePendingDeliveries(ctx); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("fan-out failed: %v", err)
		}
	})

	p.step("delivery", func() {
		if _, err := p.delivery.DeliverPending(ctx); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("delivery failed: %v", err)
		}
	})

	p.step("mark_processed", func() {
		if _, err := p.vacancies.MarkProcessed(ctx, p.delivery.MaxAttempts()); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to mark processed vacancies: %v", err)
		}
	})

	elapsed := time.Since(start)
	metrics.PassDuration.Observe(elapsed.Seconds())
	log.Infof("pipeline pass ended after %v", elapsed)
}

// EnqueueAndDeliver sends up to the fast path limit of vacancies to the chat right away and
// returns how many were delivered.
func (p *Pipeline) EnqueueAndDeliver(ctx context.Context, chatID int64, vacancies []models.Vacancy) (int, error) {

	if len(vacancies) > p.fastPathLimit {
		vacancies = vacancies[:p.fastPathLimit]
	}

	records, err := p.fanout.Enqueue(ctx, chatID, vacancies)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue vacancies: %w", err)
	}

	byID := make(map[int]models.Vacancy, len(vacancies))
	for _, vacancy := range vacancies {
		byID[vacancy.ID] = vacancy
	}

	delivered := 0
	for _, record := range records {
		if p.delivery.DeliverOne(ctx, record, byID[record.VacancyID]) {
			delivered++
		}
	}
	return delivered, nil
}

// SubscribeAndDeliver refreshes the pair's feed and sends its latest vacancies to a chat that
// has just subscribed.
func (p *Pipeline) SubscribeAndDeliver(ctx context.Context, chatID int64, city models.City,
	category models.Category) (int, error) {

	// a failed fetch still leaves previously stored vacancies to send
	_, _ = p.IngestFeedFor(ctx, city, category)

	latest, err := p.vacancies.LatestFor(ctx, city.ID, category.ID, p.fastPathLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest vacancies: %w", err)
	}

	return p.EnqueueAndDeliver(ctx, chatID, latest)
}

func (p *Pipeline) step(name string, fn func()) {
	start := time.Now()
	fn()
	metrics.PassStepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
