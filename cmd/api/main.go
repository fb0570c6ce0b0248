package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/hookrelay/internal/config"
	"github.com/kursadbilgin/hookrelay/internal/dispatcher"
	"github.com/kursadbilgin/hookrelay/internal/handler"
	"github.com/kursadbilgin/hookrelay/internal/infra/postgresql"
	"github.com/kursadbilgin/hookrelay/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/hookrelay/internal/infra/redis"
	"github.com/kursadbilgin/hookrelay/internal/observability"
	"github.com/kursadbilgin/hookrelay/internal/queue"
	"github.com/kursadbilgin/hookrelay/internal/ratelimit"
	"github.com/kursadbilgin/hookrelay/internal/repository"
	"github.com/kursadbilgin/hookrelay/internal/service"
	"github.com/kursadbilgin/hookrelay/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()

	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.ConsumerPrefetch, logger)
	defer consumer.Close()

	endpointRepo := repository.NewGormEndpointRepo(db)
	webhookRepo := repository.NewGormWebhookRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)
	subscriptionRepo := repository.NewGormSubscriptionRepo(db)

	slidingWindow := ratelimit.NewSlidingWindow(logger)

	deliveryLimiter, err := infraredis.NewDeliveryRateLimiter(rdb, cfg.DeliveryRateLimitPerSec)
	if err != nil {
		logger.Fatal("delivery rate limiter initialization failed", zap.Error(err))
	}

	httpDispatcher := dispatcher.NewHTTPDispatcher(time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second)

	deliverySvc, err := service.NewDeliveryService(deliveryRepo, attemptRepo, publisher, httpDispatcher, deliveryLimiter, logger)
	if err != nil {
		logger.Fatal("delivery service initialization failed", zap.Error(err))
	}

	fanoutSvc, err := service.NewFanoutService(subscriptionRepo, deliverySvc, logger)
	if err != nil {
		logger.Fatal("fanout service initialization failed", zap.Error(err))
	}

	ingestionSvc, err := service.NewIngestionService(endpointRepo, webhookRepo, publisher, slidingWindow, fanoutSvc, logger)
	if err != nil {
		logger.Fatal("ingestion service initialization failed", zap.Error(err))
	}

	endpointSvc, err := service.NewEndpointService(endpointRepo, logger)
	if err != nil {
		logger.Fatal("endpoint service initialization failed", zap.Error(err))
	}

	statsSvc, err := service.NewStatsService(webhookRepo)
	if err != nil {
		logger.Fatal("stats service initialization failed", zap.Error(err))
	}

	workers, err := service.NewWorkerService(ingestionSvc, deliverySvc, consumer, cfg.IngestConcurrency, cfg.DeliveryConcurrency, logger)
	if err != nil {
		logger.Fatal("worker service initialization failed", zap.Error(err))
	}

	scanner, err := service.NewRetryScanner(
		webhookRepo,
		deliveryRepo,
		publisher,
		time.Duration(cfg.RetryScanIntervalSecs)*time.Second,
		cfg.RetryScanLimit,
		logger,
	)
	if err != nil {
		logger.Fatal("retry scanner initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	ingestionSvc.SetMetrics(metrics)
	deliverySvc.SetMetrics(metrics)
	workers.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	if err := handler.RegisterEndpointRoutes(app, endpointSvc, statsSvc); err != nil {
		logger.Fatal("endpoint routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, ingestionSvc); err != nil {
		logger.Fatal("webhook routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterDeliveryRoutes(app, deliverySvc); err != nil {
		logger.Fatal("delivery routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterSubscriptionRoutes(app, fanoutSvc); err != nil {
		logger.Fatal("subscription routes registration failed", zap.Error(err))
	}
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("hookrelay api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return workers.Start(gctx)
	})

	g.Go(func() error {
		return scanner.Start(gctx)
	})

	g.Go(func() error {
		return slidingWindow.Start(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service terminated", zap.Error(err))
	}

	logger.Info("hookrelay api stopped")
}
