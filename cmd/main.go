package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailmaster/internal/api"
	"mailmaster/internal/api/registry"
	"mailmaster/internal/config"
	"mailmaster/internal/db"
	"mailmaster/internal/docs"
	"mailmaster/internal/events"
	"mailmaster/internal/mail"
	"mailmaster/internal/repository"
	"mailmaster/internal/services"
	"mailmaster/internal/storage"
	"mailmaster/internal/tasks"
	"mailmaster/internal/utils"
	"mailmaster/internal/utils/logger"

	"github.com/joho/godotenv"
)

func main() {
	appLogger := logger.New("mailmaster")

	// check if .env file exists
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		appLogger.Info("No .env file found, skipping environment variable loading")
	} else {
		appLogger.Info("Loading environment variables from .env file")
		if err := godotenv.Load(); err != nil {
			log.Fatalf("Failed to load environment variables: %v", err)
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	appLogger.SetLevel(logger.ParseLevel(cfg.Server.LogLevel))

	// Connect to database
	conn, err := db.Connect(cfg, cfg.Server.LogLevel == "debug")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(conn); err != nil {
			appLogger.Error("Failed to close database connection", err)
		}
	}()

	// Redis backs rate limiting; without it limits are kept per process
	redisClient, err := utils.NewRedisClient(cfg)
	if err != nil {
		appLogger.Warn("Redis unavailable, rate limits fall back to memory: %v", err)
		redisClient = nil
	}

	bus := events.NewBus()

	users := repository.NewUserRepository(conn, bus)
	tokens := repository.NewTokenRepository(conn)
	newsletters := repository.NewNewsletterRepository(conn, bus)
	subscribers := repository.NewSubscriberRepository(conn, bus)
	campaigns := repository.NewCampaignRepository(conn, bus)

	var archiver storage.Archiver
	if cfg.Storage.S3.Enabled() {
		s3, err := storage.NewS3Archiver(context.Background(), cfg.Storage.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 archive: %v", err)
		}
		archiver = s3
		appLogger.Info("Campaign archive enabled in bucket %s", cfg.Storage.S3.Bucket)
	}

	mailer := mail.New(cfg.SMTP, appLogger.Named("mail"))

	taskClient := tasks.NewTaskClient(cfg.Redis, appLogger.Named("tasks"))
	defer taskClient.Close()

	authService := services.NewAuthService(users, tokens, cfg.JWT)
	campaignService := services.NewCampaignService(campaigns, newsletters, taskClient, archiver)
	subscriberService := services.NewSubscriberService(subscribers, newsletters, cfg.JWT.Secret)
	delivery := services.NewDeliveryService(
		campaigns, newsletters, subscribers,
		mailer, archiver,
		services.OptionsFromConfig(cfg),
		appLogger.Named("delivery"),
	)

	services.RegisterWelcomeHook(bus, taskClient, appLogger.Named("hooks"))

	// Initialize task handlers
	taskHandler := tasks.NewTaskHandler(delivery, campaignService, authService, appLogger.Named("worker"))

	// Start task server
	taskServer := tasks.NewServer(cfg.Redis, cfg.Worker, taskHandler, appLogger.Named("worker"))
	if err := taskServer.Start(); err != nil {
		log.Fatalf("Failed to start task server: %v", err)
	}

	// Start task scheduler
	taskScheduler := tasks.NewScheduler(cfg.Redis, cfg.Worker, appLogger.Named("scheduler"))
	if err := taskScheduler.Start(); err != nil {
		log.Fatalf("Failed to start task scheduler: %v", err)
	}

	// Swagger documentation
	docs.SwaggerInfo.Host = hostOf(cfg.Server.BaseURL)

	// Initialize API server
	apiServer := api.NewServer(cfg, conn, redisClient, registry.Services{
		Auth:        authService,
		Users:       services.NewUserService(users),
		Newsletters: services.NewNewsletterService(newsletters),
		Subscribers: subscriberService,
		Campaigns:   campaignService,
	}, appLogger)

	go func() {
		if err := apiServer.Start(); err != nil {
			appLogger.Error("API server error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the servers
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown API server
	if err := apiServer.Shutdown(ctx); err != nil {
		appLogger.Error("Failed to shutdown API server", err)
	}

	taskScheduler.Shutdown()
	taskServer.Shutdown()

	appLogger.Info("Servers shutdown gracefully")
}

// hostOf strips the scheme from a base URL for the Swagger host field.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
