package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pantrywatch/pantry-api/internal/config"
	"github.com/pantrywatch/pantry-api/internal/database"
	"github.com/pantrywatch/pantry-api/internal/logger"
	"github.com/pantrywatch/pantry-api/internal/queue"
	"github.com/pantrywatch/pantry-api/internal/services/ai"
	"github.com/pantrywatch/pantry-api/internal/workers"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
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
		zap.String("ai_model", cfg.AIModel),
	)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	itemRepo := database.NewItemRepository(db)
	healthRepo := database.NewHealthRepository(db)

	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	var generator ai.ContentGenerator
	if cfg.OpenAIKey != "" {
		generator = ai.NewOpenAIGeneratorWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	} else {
		zapLogger.Warn("openai_key_not_configured_using_fallbacks")
	}
	aiService := ai.NewService(generator, zapLogger)

	refresher := workers.NewAnalysisRefresher(aiService, healthRepo, itemRepo, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// DLQ garbage collection runs alongside consumption
	dlqGC := queue.NewGarbageCollector(jobQueue, 1*time.Hour, 24*time.Hour, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()

	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				handleMessage(ctx, refresher, jobQueue, msg, zapLogger)
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

	<-sigChan
	zapLogger.Info("shutdown_signal_received")

	cancel()

	zapLogger.Info("worker_stopped")
}

// handleMessage processes one job and acknowledges it based on the outcome.
// Quota and rate-limit failures go back on the queue with a NotBefore delay
// so the delayed exchange holds them until the provider recovers; other
// failures retry immediately until retries run out, then dead-letter.
func handleMessage(ctx context.Context, refresher *workers.AnalysisRefresher, jobQueue queue.JobQueue, msg *queue.Message, zapLogger *zap.Logger) {
	job := msg.GetJob()

	if err := refresher.ProcessJob(ctx, job); err != nil {
		zapLogger.Error("failed_to_process_job",
			zap.Error(err),
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
			zap.Int("retry_count", job.RetryCount),
		)

		if (ai.IsQuotaError(err) || ai.IsRateLimitError(err)) && job.CanRetry() {
			retryDelay := ai.GetRetryDelay(err, job.RetryCount)
			notBefore := time.Now().Add(retryDelay)
			delayed := *job
			delayed.NotBefore = &notBefore
			delayed.RetryCount = job.RetryCount + 1

			if ackErr := msg.Ack(); ackErr != nil {
				zapLogger.Error("failed_to_ack_message", zap.Error(ackErr))
			}
			if enqueueErr := jobQueue.Enqueue(ctx, &delayed); enqueueErr != nil {
				zapLogger.Error("failed_to_reenqueue_delayed_job",
					zap.Error(enqueueErr),
					zap.String("job_id", job.ID.String()),
				)
				return
			}
			zapLogger.Warn("job_delayed_for_provider_recovery",
				zap.String("job_id", job.ID.String()),
				zap.Duration("retry_delay", retryDelay),
				zap.Bool("quota_exhausted", ai.IsQuotaError(err)),
			)
			return
		}

		if job.CanRetry() {
			job.IncrementRetry()
			if nackErr := msg.Nack(true); nackErr != nil {
				zapLogger.Error("failed_to_nack_message", zap.Error(nackErr))
			}
		} else {
			// Out of retries, dead-letter it
			if nackErr := msg.Nack(false); nackErr != nil {
				zapLogger.Error("failed_to_nack_message", zap.Error(nackErr))
			}
		}
		return
	}

	if err := msg.Ack(); err != nil {
		zapLogger.Error("failed_to_ack_message", zap.Error(err))
	}
}
