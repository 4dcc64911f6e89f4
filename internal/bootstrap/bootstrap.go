// Package bootstrap holds the startup wiring shared by the server, the worker and importctl.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/parsers"
	"github.com/benvon/time-import/internal/queue"
	"github.com/benvon/time-import/internal/ratelimit"
	"github.com/benvon/time-import/internal/services/ai"
	"go.uber.org/zap"
)

// Collaborator builds the configured AI collaborator gated on the shared collaborator quota.
// The quota is read from rates when stored there, else from COLLABORATOR_RATE.
func Collaborator(ctx context.Context, cfg *config.Config, store ratelimit.StateStore, rates database.RatelimitGetter, logger *zap.Logger, debugMode bool) (ai.Collaborator, error) {
	rate := database.ResolveRate(ctx, rates, models.RatelimitKeyCollaborator, cfg.CollaboratorRate)
	limiter, err := ratelimit.NewFromFormatted(store, "ratelimit:"+models.RatelimitKeyCollaborator, rate)
	if err != nil {
		return nil, fmt.Errorf("failed to create collaborator limiter: %w", err)
	}

	collaborator, err := ai.NewCollaborator(cfg.AIProvider, ai.ProviderConfig{
		APIKey:      cfg.OpenAIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		VisionModel: cfg.AIVisionModel,
		Logger:      logger,
		DebugMode:   debugMode,
	}, limiter)
	if err != nil {
		return nil, err
	}

	logger.Info("initialized_ai_collaborator",
		zap.String("provider", cfg.AIProvider),
		zap.String("model", cfg.AIModel),
		zap.Bool("api_key_configured", cfg.OpenAIKey != ""),
		zap.String("rate", rate),
	)
	return collaborator, nil
}

// Keywords loads the auto-mapping keyword file, or the built-in lists when path is empty
func Keywords(path string) (parsers.Keywords, error) {
	if path == "" {
		return parsers.DefaultKeywords(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return parsers.Keywords{}, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return parsers.LoadKeywords(data)
}

const (
	queueConnectAttempts = 10
	queueInitialDelay    = 2 * time.Second
	queueMaxDelay        = 30 * time.Second
)

// ConnectQueue dials RabbitMQ, retrying with exponential backoff while the broker starts
func ConnectQueue(ctx context.Context, url string, logger *zap.Logger) (*queue.RabbitMQQueue, error) {
	var lastErr error
	for attempt := 0; attempt < queueConnectAttempts; attempt++ {
		q, err := queue.NewRabbitMQQueue(url)
		if err == nil {
			logger.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err

		delay := backoff(attempt)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", queueConnectAttempts),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", queueConnectAttempts, lastErr)
}

func backoff(attempt int) time.Duration {
	delay := queueInitialDelay << uint(attempt)
	if delay > queueMaxDelay || delay <= 0 {
		return queueMaxDelay
	}
	return delay
}
