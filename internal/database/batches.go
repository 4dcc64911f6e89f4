package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

// ErrImportNotFound is returned when no import with the id exists for the user
var ErrImportNotFound = errors.New("import not found")

// BatchRepository stores import requests and their draft batches
type BatchRepository struct {
	db *DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// CreateQueued records an import request waiting for a worker
func (r *BatchRepository) CreateQueued(ctx context.Context, id, userID uuid.UUID) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_batches (id, user_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, userID, models.ImportStateQueued, now, now)
	if err != nil {
		return fmt.Errorf("failed to create import: %w", err)
	}
	return nil
}

// MarkProcessing moves an import to processing
func (r *BatchRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.setState(ctx, id, models.ImportStateProcessing, "")
}

// MarkFailed records why an import could not be built
func (r *BatchRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.setState(ctx, id, models.ImportStateFailed, reason)
}

func (r *BatchRepository) setState(ctx context.Context, id uuid.UUID, state models.ImportState, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE import_batches SET state = $2, error = $3, updated_at = $4 WHERE id = $1
	`, id, state, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update import state: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrImportNotFound
	}
	return nil
}

// SaveBatch stores a draft batch and marks its import ready. Synchronous imports have no
// queued row yet, so the row is created when missing.
func (r *BatchRepository) SaveBatch(ctx context.Context, batch *models.Batch) error {
	payload, err := EncodeBatch(batch)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO import_batches (id, user_id, state, error, payload, created_at, updated_at)
		VALUES ($1, $2, $3, '', $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			error = '',
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, batch.ID, batch.UserID, models.ImportStateReady, payload, batch.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

// GetByID returns the import owned by userID
func (r *BatchRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ImportRecord, error) {
	record := &models.ImportRecord{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, state, error, payload, created_at, updated_at
		FROM import_batches
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&record.ID,
		&record.UserID,
		&record.State,
		&record.Error,
		&payload,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}

	if len(payload) > 0 {
		batch, err := DecodeBatch(payload)
		if err != nil {
			return nil, err
		}
		record.Batch = batch
	}
	return record, nil
}

// EncodeBatch serializes a batch for storage. Source contents are dropped; the hash and
// metadata of each source are kept.
func EncodeBatch(batch *models.Batch) ([]byte, error) {
	payload, err := json.Marshal(batch.WithoutSourceContent())
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}
	return payload, nil
}

// DecodeBatch reverses EncodeBatch
func DecodeBatch(payload []byte) (*models.Batch, error) {
	var batch models.Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &batch, nil
}
