package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"isp-billing-platform/config"
	"isp-billing-platform/internal/api"
	"isp-billing-platform/internal/auth"
	"isp-billing-platform/internal/billing"
	"isp-billing-platform/internal/cache"
	"isp-billing-platform/internal/database"
	"isp-billing-platform/internal/distribution"
	"isp-billing-platform/internal/equipment"
	"isp-billing-platform/internal/events"
	"isp-billing-platform/internal/logging"
	"isp-billing-platform/internal/notification"
	"isp-billing-platform/internal/ownership"
	"isp-billing-platform/internal/reporting"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		JSONFormat:  cfg.LoggingConfig.JSONFormat,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Initialize notification manager
	var notifyManager *notification.Manager
	if cfg.NotificationConfig.Enabled {
		notifyManager = notification.NewManager()

		if cfg.NotificationConfig.Webhook.Enabled {
			webhookNotifier := notification.NewWebhookNotifier(notification.WebhookConfig{
				URL:     cfg.NotificationConfig.Webhook.URL,
				Enabled: cfg.NotificationConfig.Webhook.Enabled,
			})
			notifyManager.AddNotifier(webhookNotifier)
			logger.Info("Webhook notifications enabled")
		}

		eventBus.SubscribeAll(notifyManager.HandleEvent)
	}

	// Initialize database
	dbConfig := database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	}

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repository
	repo := database.NewRepository(db)

	// Initialize redis cache (optional; reports fall back to the database)
	var cacheSvc *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheSvc, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, report caching disabled")
			cacheSvc = nil
		} else {
			defer cacheSvc.Close()
			logger.Info("Report cache initialized", "address", cfg.RedisConfig.Address)
		}
	}

	// Billing configuration, file/env values over engine defaults
	billingConfig := buildBillingConfig(cfg.BillingConfig)

	// Core services
	analyzer := equipment.NewAnalyzer(repo, billingConfig)
	calculator := billing.NewProfitCalculator(repo, billingConfig, analyzer, eventBus)
	ledger := ownership.NewLedger(repo, billingConfig, eventBus, nil)
	engine := distribution.NewEngine(repo, billingConfig, eventBus)
	reports := reporting.NewService(repo, analyzer, cacheSvc, billingConfig)

	// Cache invalidation rides the event bus
	if cacheSvc != nil {
		eventBus.SubscribeAll(reports.HandleEvent)
	}

	// Persist advisory events for the audit trail
	setupEventPersistence(eventBus, repo, logger)

	// JWT validation (tokens are issued by the identity service)
	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		if cfg.AuthConfig.JWTSecret == "" {
			log.Fatalf("AUTH_JWT_SECRET is required when auth is enabled")
		}
		jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.AccessTokenDuration)
		logger.Info("JWT authentication enabled")
	}

	// Initialize web server
	serverConfig := api.ServerConfig{
		Port:           cfg.ServerConfig.Port,
		Host:           cfg.ServerConfig.Host,
		ProductionMode: os.Getenv("APP_ENV") != "development",
		AllowedOrigins: splitOrigins(cfg.ServerConfig.AllowedOrigins),
		RateLimit:      cfg.ServerConfig.RateLimit,
	}

	server := api.NewServer(
		serverConfig,
		repo,
		eventBus,
		cacheSvc,
		jwtManager,
		ledger,
		calculator,
		engine,
		analyzer,
		reports,
	)

	// Start web server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start web server: %v", err)
		}
	}()

	logger.Info("ISP billing platform started", "host", serverConfig.Host, "port", serverConfig.Port)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")

	// Graceful shutdown
	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}

	log.Println("Shutdown complete")
}

// buildBillingConfig overlays file/env values onto the engine defaults so a
// partially filled config section still yields a working engine.
func buildBillingConfig(c config.BillingConfig) *billing.BillingConfig {
	bc := billing.DefaultBillingConfig()
	if c.OwnershipTolerance > 0 {
		bc.OwnershipTolerance = c.OwnershipTolerance
	}
	if c.OwnershipWarningThreshold > 0 {
		bc.OwnershipWarningThreshold = c.OwnershipWarningThreshold
	}
	if c.RoundingMode != "" {
		bc.RoundingMode = c.RoundingMode
	}
	if c.MinAnalysisMonths > 0 {
		bc.MinAnalysisMonths = c.MinAnalysisMonths
	}
	if c.MaxAnalysisMonths > 0 {
		bc.MaxAnalysisMonths = c.MaxAnalysisMonths
	}
	if c.ReportTimeout > 0 {
		bc.ReportTimeout = c.ReportTimeout
	}
	if c.EarningsCacheTTL > 0 {
		bc.EarningsCacheTTL = c.EarningsCacheTTL
	}
	if c.ROICacheTTL > 0 {
		bc.ROICacheTTL = c.ROICacheTTL
	}
	return bc
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func setupEventPersistence(eventBus *events.EventBus, repo *database.Repository, logger *logging.Logger) {
	persist := func(source, message string) events.Subscriber {
		return func(event events.Event) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Events carrying their own message override the default
			msg := message
			if m, ok := event.Data["message"].(string); ok && m != "" {
				msg = m
			}
			if err := repo.RecordSystemEvent(ctx, string(event.Type), source, msg, event.Data); err != nil {
				logger.WithError(err).Error("Failed to persist event", "type", string(event.Type))
			}
		}
	}

	eventBus.Subscribe(events.EventOwnershipWarning, persist("ownership", "Ownership threshold warning"))
	eventBus.Subscribe(events.EventPartnershipCreated, persist("ownership", "Partnership created"))
	eventBus.Subscribe(events.EventPartnershipUpdated, persist("ownership", "Partnership updated"))
	eventBus.Subscribe(events.EventPartnershipDeactivated, persist("ownership", "Partnership deactivated"))
	eventBus.Subscribe(events.EventProfitCalculated, persist("billing", "Monthly profit calculated"))

	logger.Info("Event persistence configured")
}
