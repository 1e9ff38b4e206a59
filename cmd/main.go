package main

import (
	"context"
	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/dou-jobs-bot/internal/bot"
	"github.com/maxaizer/dou-jobs-bot/internal/clients/dou"
	"github.com/maxaizer/dou-jobs-bot/internal/clients/telegram"
	"github.com/maxaizer/dou-jobs-bot/internal/config"
	"github.com/maxaizer/dou-jobs-bot/internal/logger"
	"github.com/maxaizer/dou-jobs-bot/internal/metrics"
	"github.com/maxaizer/dou-jobs-bot/internal/repositories"
	"github.com/maxaizer/dou-jobs-bot/internal/services"
	log "github.com/sirupsen/logrus"
	"os/signal"
	"syscall"
)

func newPipeline(cfg config.PipelineConfig, db *repositories.DbContext, sender services.MessageSender) (
	*services.Pipeline, *services.DeliveryAuditor) {

	feedClient := dou.NewClient(cfg.FeedURL)
	feedClient.SetRateLimit(cfg.FeedMaxRequestsPerSecond)

	vacancies := repositories.NewVacanciesRepository(db.DB)
	deliveries := repositories.NewDeliveriesRepository(db.DB)
	subscriptions := repositories.NewSubscriptionsRepository(db.DB)

	pipeline := services.NewPipeline(
		feedClient,
		services.NewFeedNormalizer(cfg.MessageLimit),
		services.NewVacancyStore(vacancies),
		services.NewFanoutEngine(deliveries, cfg.FanoutBatchSize),
		services.NewDeliveryWorker(deliveries, sender, cfg.MaxAttempts),
		subscriptions,
		vacancies,
		services.PipelineOptions{FastPathLimit: cfg.FastPathLimit},
	)

	return pipeline, services.NewDeliveryAuditor(deliveries, cfg.MaxAttempts)
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(ctx, cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Metrics.Port)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	err = dbContext.Migrate()
	if err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	api, err := botApi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Fatalf("can't create telegram api: %v", err)
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	sender := telegram.NewSender(api, cfg.Bot.MaxMessagesPerSecond)
	pipeline, auditor := newPipeline(cfg.Pipeline, dbContext, sender)

	bus := EventBus.New()
	if _, err = services.NewStatisticsRecorder(bus, repositories.NewStatisticsRepository(dbContext.DB)); err != nil {
		log.Fatalf("can't create statistics recorder: %v", err)
	}

	subscriptions := repositories.NewSubscriptionsRepository(dbContext.DB)

	tgbot, err := bot.NewBot(api, bus, bot.Repositories{
		Chats:         repositories.NewChatsRepository(dbContext.DB),
		Subscriptions: subscriptions,
		References:    repositories.NewCachedReferences(repositories.NewReferencesRepository(dbContext.DB)),
		Data:          repositories.NewDataRepository(dbContext.DB),
	}, bot.Services{
		Pipeline:  pipeline,
		Posts:     services.NewPosts(repositories.NewPostsRepository(dbContext.DB), subscriptions, sender),
		Greetings: services.NewGreetings(repositories.NewGreetingsRepository(dbContext.DB)),
	}, cfg.Bot.AdminChatIDs)
	if err != nil {
		log.Fatalf("can't create bot: %v", err)
	}
	go tgbot.Run()

	scheduler, err := services.NewScheduler(pipeline, auditor, cfg.Pipeline.Interval)
	if err != nil {
		log.Fatalf("can't create scheduler: %v", err)
	}
	scheduler.Start()

	<-ctx.Done()

	log.Info("Shutting down services...")
	scheduler.Stop()
	tgbot.Stop()
	log.Info("Services stopped.")
}
