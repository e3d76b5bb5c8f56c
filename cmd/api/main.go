package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/terra-capital/market-api/internal/config"
	"github.com/terra-capital/market-api/internal/database"
	"github.com/terra-capital/market-api/internal/handler"
	"github.com/terra-capital/market-api/internal/middleware"
	"github.com/terra-capital/market-api/internal/models"
	"github.com/terra-capital/market-api/internal/repository"
	"github.com/terra-capital/market-api/internal/router"
	"github.com/terra-capital/market-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Asset{},
		&models.Purchase{},
		&models.Thread{},
		&models.Message{},
		&models.MessageHide{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	assetRepo := repository.NewAssetRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	assetService := service.NewAssetService(assetRepo, threadRepo, messageRepo, validate, logger)
	threadService := service.NewThreadService(threadRepo, assetRepo, validate, logger)
	messageService := service.NewMessageService(messageRepo, threadRepo, validate, logger)
	notificationService := service.NewNotificationService(messageRepo, assetRepo, redisClient, logger)
	qrLinkService := service.NewQRLinkService(cfg.QRSessionTTL, logger)

	runCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	qrLinkService.Start(runCtx)

	marketplaceHandler := handler.NewMarketplaceHandler(assetService, threadService, messageService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	qrLinkHandler := handler.NewQRLinkHandler(qrLinkService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MarketplaceHandler:  marketplaceHandler,
		NotificationHandler: notificationHandler,
		QRLinkHandler:       qrLinkHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
