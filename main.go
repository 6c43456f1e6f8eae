package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"resort-booking/cmd"
	"resort-booking/internal/cache"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/notification"
	"resort-booking/internal/payment"
	"resort-booking/internal/scheduler"
	"resort-booking/internal/usecase"
	"resort-booking/internal/wire"
	"resort-booking/migrations"
	"resort-booking/pkg/broker"
	"resort-booking/pkg/database"
	"resort-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Tracing.Enabled {
		tp, err := utils.InitTracer(config.App.Name, config.Tracing.JaegerEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		if err := database.Migrate(db, migrations.FS); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	repos := repository.NewRepository(db, logger)

	gateway, err := payment.New(config, logger)
	if err != nil {
		logger.Fatal("Failed to init payment provider", zap.Error(err))
	}

	// Redis is optional
	var rdb *redis.Client
	var availabilityCache usecase.AvailabilityCache
	if client, err := database.InitRedis(config.Redis); err != nil {
		logger.Warn("Redis unavailable, running without cache", zap.Error(err))
	} else {
		rdb = client
		defer rdb.Close()
		availabilityCache = cache.NewAvailability(rdb, time.Duration(config.Redis.CacheTTLSeconds)*time.Second, logger)
	}

	var wg sync.WaitGroup

	// Notifications go through Kafka when brokers are configured, otherwise
	// straight to the mailer.
	emails := notification.NewEmailHandler(repos, notification.NewMailer(config.Email, logger), logger)
	var publisher notification.Publisher = notification.LocalPublisher{Handler: emails}
	if len(config.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(config.Kafka.Brokers, config.Kafka.BookingTopic, logger)
		defer producer.Close()
		publisher = producer

		consumer := broker.NewConsumer(config.Kafka.Brokers, config.Kafka.BookingTopic, config.Kafka.ConsumerGroup, logger)
		defer consumer.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = consumer.StartConsuming(ctx, emails.HandleMessage)
		}()
	}
	notifier := notification.NewNotifier(publisher, logger)

	app, err := wire.Wiring(wire.Deps{
		Repo:     repos,
		Gateway:  gateway,
		Notifier: notifier,
		Cache:    availabilityCache,
		Redis:    rdb,
		Config:   config,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	sweeper := scheduler.NewSweeper(app.Service.Attempt, app.Service.Auth,
		time.Duration(config.Booking.SweepIntervalSeconds)*time.Second, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("HTTP server stopped", zap.Error(err))
		stop()
	}

	wg.Wait()
	notifier.Wait()
	logger.Info("Shutdown complete")
}
