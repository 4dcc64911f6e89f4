package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/time-import/internal/database"
	logpkg "github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/queue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PipelineRunner builds a draft batch from sources
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*models.Batch, error)
}

// BatchStore is the part of the batch repository the worker writes to
type BatchStore interface {
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	SaveBatch(ctx context.Context, batch *models.Batch) error
}

// ImportProcessor consumes import jobs
type ImportProcessor struct {
	runner  PipelineRunner
	batches BatchStore
	logger  *zap.Logger
}

// NewImportProcessor creates an import processor
func NewImportProcessor(runner PipelineRunner, batches BatchStore, logger *zap.Logger) *ImportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportProcessor{
		runner:  runner,
		batches: batches,
		logger:  logger,
	}
}

// ProcessJob runs the pipeline for one job and stores the draft batch. Failed jobs are
// marked failed and dead-lettered; they are never requeued.
func (p *ImportProcessor) ProcessJob(ctx context.Context, msg queue.Delivery) error {
	job := msg.GetJob()
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("batch_id", job.BatchID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.Bool("redelivered", msg.Redelivered()),
	}

	if job.IsExpired() {
		p.logger.Warn("import_job_expired", fields...)
		p.markFailed(ctx, job.BatchID, "import request expired before processing", fields)
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack expired import job: %w", ackErr)
		}
		return nil
	}

	if err := p.batches.MarkProcessing(ctx, job.BatchID); err != nil && !errors.Is(err, database.ErrImportNotFound) {
		p.logger.Warn("failed_to_mark_import_processing", append(fields, zap.String("error", logpkg.SanitizeError(err)))...)
	}

	batch, err := p.runner.Run(ctx, pipeline.Request{
		UserID:  job.UserID,
		BatchID: job.BatchID,
		Sources: job.Sources,
		Mapping: job.Mapping,
	})
	if err == nil {
		err = p.batches.SaveBatch(ctx, batch)
	}
	if err != nil {
		p.logger.Error("import_job_failed", append(fields,
			zap.String("operation", "process_job"),
			zap.String("error", logpkg.SanitizeError(err)),
		)...)
		p.markFailed(ctx, job.BatchID, err.Error(), fields)
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("failed_to_nack_import_job", append(fields, zap.String("error", logpkg.SanitizeError(nackErr)))...)
		}
		return fmt.Errorf("import failed: %w", err)
	}

	p.logger.Info("import_job_completed", append(fields,
		zap.Int("candidates", len(batch.Candidates)),
		zap.Int("issues", len(batch.Issues)),
	)...)
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack import job: %w", ackErr)
	}
	return nil
}

func (p *ImportProcessor) markFailed(ctx context.Context, id uuid.UUID, reason string, fields []zap.Field) {
	if err := p.batches.MarkFailed(ctx, id, reason); err != nil {
		p.logger.Warn("failed_to_mark_import_failed", append(fields, zap.String("error", logpkg.SanitizeError(err)))...)
	}
}
