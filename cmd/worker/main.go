package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benvon/time-import/internal/bootstrap"
	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/middleware"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/ratelimit"
	"github.com/benvon/time-import/internal/telemetry"
	"github.com/benvon/time-import/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("ai_provider", cfg.AIProvider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Setup(ctx, cfg.OTELEnabled, "worker", cfg.OTELEndpoint, zapLogger)
	defer shutdownTracing()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}

	// The collaborator quota is shared with the server through Redis
	redisClient, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	jobQueue, err := bootstrap.ConnectQueue(ctx, cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	collaborator, err := bootstrap.Collaborator(ctx, cfg,
		ratelimit.NewRedisStateStore(redisClient.Client()),
		database.NewRatelimitConfigRepository(db), zapLogger, debugMode)
	if err != nil {
		zapLogger.Fatal("failed_to_create_ai_collaborator", zap.Error(err))
	}

	keywords, err := bootstrap.Keywords(cfg.KeywordsFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_keywords", zap.Error(err))
	}

	importPipeline := pipeline.New(collaborator, database.NewEntryStore(db), zapLogger, pipeline.WithKeywords(keywords))
	processor := workers.NewImportProcessor(importPipeline, database.NewBatchRepository(db), zapLogger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started_consuming_messages")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					cancel()
					return
				}
				if err := processor.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("failed_to_process_job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("batch_id", msg.GetJob().BatchID.String()),
					)
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	select {
	case <-sigChan:
		zapLogger.Info("shutdown_signal_received_stopping_worker")
	case <-ctx.Done():
		zapLogger.Warn("consumer_stopped_exiting")
	}
	cancel()

	zapLogger.Info("worker_stopped")
}
