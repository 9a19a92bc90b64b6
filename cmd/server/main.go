package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kopitetangga/service-loyalty/internal/adapter"
	"github.com/kopitetangga/service-loyalty/internal/application"
	"github.com/kopitetangga/service-loyalty/internal/config"
	"github.com/kopitetangga/service-loyalty/internal/domain/program"
	loyaltyEvents "github.com/kopitetangga/service-loyalty/internal/events"
	"github.com/kopitetangga/service-loyalty/internal/handler"
	"github.com/kopitetangga/service-loyalty/internal/repository"
	"github.com/kopitetangga/service-loyalty/internal/saga"
	"github.com/kopitetangga/service-loyalty/pkg/auth"
	"github.com/kopitetangga/service-loyalty/pkg/database"
	"github.com/kopitetangga/service-loyalty/pkg/health"
	"github.com/kopitetangga/service-loyalty/pkg/kafka"
	"github.com/kopitetangga/service-loyalty/pkg/logger"
	"github.com/kopitetangga/service-loyalty/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, "service-loyalty")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting service-loyalty",
		zap.String("port", cfg.Port),
		zap.Int("cycle_size", cfg.Loyalty.CycleSize),
	)

	// Connect to database
	dbConfig := database.PostgresConfig{
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}

	db, err := database.Connect(dbConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.CustomerModel{},
			&repository.MembershipModel{},
			&repository.CycleModel{},
			&repository.StampModel{},
			&repository.CardModel{},
			&repository.SettingsModel{},
			&repository.AuditModel{},
		); err != nil {
			zapLogger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		zapLogger.Info("database migration completed (dev auto-migrate)")
	} else {
		dbURL := dbConfig.DatabaseURL()
		if err := database.RunMigrations(dbURL, "migrations", zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer and event publisher
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, zapLogger)
	defer kafkaProducer.Close()
	publisher := loyaltyEvents.NewPublisher(kafkaProducer, zapLogger)

	// Initialize POS adapter (mock for development)
	posAdapter := adapter.NewMockPOSAdapter(zapLogger)

	// Initialize repositories
	settingsDefaults := program.Settings{
		MembershipFee:            cfg.Loyalty.MembershipFee,
		MembershipDurationMonths: cfg.Loyalty.MembershipDurationMonths,
		DiscountPercent:          cfg.Loyalty.DiscountPercent,
		MinAmountForStamp:        cfg.Loyalty.MinAmountForStamp,
		RewardMilestones:         cfg.Loyalty.RewardMilestones,
	}
	membershipRepo := repository.NewGormMembershipRepository(db)
	customerRepo := repository.NewGormCustomerRepository(db)
	cardRepo := repository.NewGormCardRepository(db)
	settingsRepo := repository.NewGormSettingsRepository(db, cfg.Loyalty.CycleSize, settingsDefaults)
	auditRepo := repository.NewGormAuditRepository(db, zapLogger)
	reportRepo := repository.NewGormReportRepository(db)

	// Initialize saga service for card activation
	activationService := saga.NewActivationSagaService(
		membershipRepo,
		customerRepo,
		cardRepo,
		settingsRepo,
		publisher,
		auditRepo,
		zapLogger,
	)

	// Initialize application services
	loyaltyService := application.NewLoyaltyService(
		membershipRepo,
		settingsRepo,
		posAdapter,
		publisher,
		auditRepo,
		cfg.Loyalty.CycleSize,
		zapLogger,
	)
	cardService := application.NewCardService(cardRepo, zapLogger)
	programService := application.NewProgramService(settingsRepo, reportRepo, cfg.Loyalty.CycleSize, zapLogger)

	// Initialize Kafka consumer for POS transaction events
	consumerGroupID := cfg.KafkaConfig.GroupPrefix + "loyalty-service"
	posConsumer := loyaltyEvents.NewPOSEventConsumer(
		cfg.KafkaConfig.Brokers,
		consumerGroupID,
		loyaltyService,
		zapLogger,
	)
	defer posConsumer.Close()

	// Start Kafka consumer in a goroutine
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	go func() {
		zapLogger.Info("starting POS event consumer")
		if err := posConsumer.Start(consumerCtx); err != nil {
			if consumerCtx.Err() == nil {
				zapLogger.Error("POS event consumer failed", zap.Error(err))
			}
		}
	}()

	// Initialize HTTP handlers
	membershipHandler := handler.NewMembershipHandler(loyaltyService)
	cardHandler := handler.NewCardHandler(cardService, activationService)
	adminHandler := handler.NewAdminHandler(programService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-loyalty")
	healthHandler.RegisterRoutes(router)

	// Register API routes
	apiV1 := router.Group("/api/v1")
	membershipHandler.RegisterRoutes(apiV1, jwtManager)
	cardHandler.RegisterRoutes(apiV1, jwtManager)
	adminHandler.RegisterRoutes(apiV1, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down service-loyalty...")

	// Cancel Kafka consumer
	consumerCancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("service-loyalty stopped")
}
