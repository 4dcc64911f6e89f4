package database

import (
	"context"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

// EntryStoreInterface is what an import run reads from storage
type EntryStoreInterface interface {
	ListStoredEntries(ctx context.Context, userID uuid.UUID) ([]models.StoredEntry, error)
	ListCategoryNames(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// BatchRepositoryInterface defines the interface for import batch persistence
// This interface enables better testability by allowing mock implementations
type BatchRepositoryInterface interface {
	CreateQueued(ctx context.Context, id, userID uuid.UUID) error
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ImportRecord, error)
}

// RatelimitConfigRepositoryInterface defines the interface for rate limit configuration
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	List(ctx context.Context) ([]*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ EntryStoreInterface                = (*EntryStore)(nil)
	_ BatchRepositoryInterface           = (*BatchRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
