package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/internal/monitor/delivery/consumer"
	delivery "tradesignal/internal/monitor/delivery/http"
	"tradesignal/internal/monitor/dto"
	"tradesignal/internal/monitor/repository"
	"tradesignal/internal/monitor/service"
	"tradesignal/pkg/common"
	"tradesignal/pkg/logger"
	"tradesignal/pkg/postgres"
	redisPkg "tradesignal/pkg/redis"
	"tradesignal/pkg/telegram"
	"tradesignal/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the price monitor",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load and validate configuration; an invalid configuration must never
	// start the monitoring loop.
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting TradeSignal Monitor",
		logger.StringField("name", cfg.App.Name),
		logger.Field("assets", cfg.Monitor.Assets),
		logger.StringField("check_schedule", cfg.Monitor.CheckSchedule),
		logger.Float64Field("price_change_threshold", cfg.Monitor.PriceChangeThreshold),
	)

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		TimeZone:        cfg.Database.TimeZone,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redisPkg.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redisPkg.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
	}
	defer redisClient.Close()

	// Create the feedback consumer group; MKSTREAM creates the stream if
	// it doesn't exist.
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamAlertFeedback, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	sampleRepo := repository.NewPriceSampleRepository(db.DB)
	decisionRepo := repository.NewDecisionRepository(db.DB)
	alertRepo := repository.NewAlertRepository(db.DB)
	priceSourceRepo := repository.NewCoinGeckoRepository(cfg, appLogger)

	genAiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini client", logger.ErrorField(err))
	}
	oracleRepo := repository.NewGeminiRepository(cfg, appLogger, genAiClient)

	// Feedback events flow through a Redis stream so the fold handler is
	// decoupled from both the Telegram listener and the cycle loop.
	publishFeedback := func(ctx context.Context, event dto.FeedbackEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return redisClient.XAdd(ctx, &redis.XAddArgs{
			Stream: common.RedisStreamAlertFeedback,
			Values: map[string]interface{}{"payload": payload},
			MaxLen: cfg.Redis.StreamMaxLen,
		}).Err()
	}

	telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, appLogger, publishFeedback)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram client", logger.ErrorField(err))
	}

	// Initialize services
	engine := service.NewDecisionEngine(cfg, appLogger, sampleRepo, decisionRepo, alertRepo, priceSourceRepo, oracleRepo, telegramClient)
	feedbackSvc := service.NewFeedbackService(appLogger, alertRepo)
	auditSvc := service.NewAuditService(sampleRepo, decisionRepo, alertRepo)

	scheduler, err := service.NewScheduler(cfg, appLogger, engine)
	if err != nil {
		appLogger.Fatal("Invalid scheduler configuration", logger.ErrorField(err))
	}

	// Start the feedback pipeline
	feedbackConsumer := consumer.NewFeedbackConsumer(redisClient.Client, feedbackSvc, appLogger)
	feedbackConsumer.Start(ctx)
	utils.GoSafe(func() { telegramClient.ListenFeedback(ctx) })

	if err := telegramClient.AnnounceStartup(cfg.Monitor.Assets, cfg.Monitor.CheckSchedule); err != nil {
		appLogger.Warn("Failed to send startup message", logger.ErrorField(err))
	}

	// Start the monitoring loop
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(ctx)
	}()

	// Initialize the audit API server
	e := echo.New()
	e.HideBanner = true
	auditHandler := delivery.NewAuditHandler(auditSvc, appLogger)
	auditHandler.RegisterRoutes(e.Group("/api/v1"))

	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("Audit API starting", logger.StringField("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Audit API failed to start", logger.ErrorField(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down monitor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Audit API forced to shutdown", logger.ErrorField(err))
	}

	// Let the in-flight cycle finish (bounded by the grace period) before
	// tearing down the feedback pipeline.
	<-schedulerDone
	feedbackConsumer.Stop()

	appLogger.Info("Monitor stopped")
}

func main() {
	rootCmd := &cobra.Command{Use: "monitor"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing monitor CLI: %s\n", err)
		os.Exit(1)
	}
}
