package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"channelgate/internal/caching"
	"channelgate/internal/config"
	"channelgate/internal/handlers"
	"channelgate/internal/jobs"
	"channelgate/internal/jobs/background"
	"channelgate/internal/logger"
	"channelgate/internal/middleware"
	"channelgate/internal/services"

	"channelgate/internal/repositories"
	"channelgate/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection pool
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Cache service
	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	// Repositories
	subscriptionRepo := repositories.NewSubscriptionRepo(pool)

	// Platform client; resolve the bot identity up front so registration
	// links work immediately. Failure is not fatal: callers gate on it.
	telegramSvc := services.NewTelegramService(cfg.TelegramBotToken, cfg.ChannelID, "", cacheSvc)
	if username, err := telegramSvc.BotUsername(ctx); err != nil {
		zlog.Warn("bot identity unresolved at startup; registration will fail until the platform answers", zap.Error(err))
	} else {
		zlog.Info("bot identity resolved", zap.String("username", username))
	}

	// Services
	inviteSvc := services.NewInviteService(subscriptionRepo, telegramSvc, cfg.InviteValidity, zlog)
	registrationSvc := services.NewRegistrationService(subscriptionRepo, telegramSvc, cacheSvc, zlog)
	correlator := services.NewCorrelatorService(subscriptionRepo, telegramSvc, inviteSvc, zlog)

	// Event polling loop: single sequential worker, stopped via ctx.
	poller := jobs.NewUpdatePoller(telegramSvc, correlator, cfg.PollTimeoutSeconds, cfg.PollRetryBackoff, zlog)
	go poller.Run(ctx)

	// Expiry sweep
	expiry := jobs.NewExpiryReconciler(subscriptionRepo, telegramSvc, zlog)
	scheduler, err := background.NewJobScheduler(expiry, cfg.SweepInterval, zlog)
	if err != nil {
		zlog.Fatal("failed to create job scheduler", zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP surface
	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())

	healthHandlers := handlers.NewHealthHandlers(pool, cacheSvc)
	subscriptionHandlers := handlers.NewSubscriptionHandlers(registrationSvc, cacheSvc)
	authHandlers := handlers.NewAuthHandlers(cfg.AdminPassword, cfg.JWTSecret)

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	api := e.Group("/api")
	api.POST("/register", subscriptionHandlers.Register)
	api.GET("/plans", subscriptionHandlers.ListPlans)
	api.POST("/admin/login", authHandlers.Login)

	admin := api.Group("/admin")
	admin.Use(echojwt.WithConfig(middleware.NewAdminJWTConfig(cfg.JWTSecret)))
	admin.GET("/subscriptions", subscriptionHandlers.ListSubscriptions)
	admin.GET("/subscriptions/:id", subscriptionHandlers.GetSubscription)

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			zlog.Info("http server stopped", zap.Error(err))
		}
	}()

	zlog.Info("channelgate started", zap.Int("port", cfg.Port))

	<-ctx.Done()
	zlog.Info("shutting down")
	if err := e.Shutdown(context.Background()); err != nil {
		zlog.Warn("http shutdown failed", zap.Error(err))
	}
}
