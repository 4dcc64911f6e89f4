package queue

import (
	"fmt"
	"time"

	"github.com/benvon/time-import/internal/models"
	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeImportBatch builds a draft batch from uploaded sources
	JobTypeImportBatch JobType = "import_batch"
)

// DefaultJobTTL is how long an import job may wait in the queue
const DefaultJobTTL = time.Hour

// Job represents a job in the queue
type Job struct {
	ID        uuid.UUID            `json:"id"`
	Type      JobType              `json:"type"`
	UserID    uuid.UUID            `json:"user_id"`
	BatchID   uuid.UUID            `json:"batch_id"`
	Sources   []models.Source      `json:"sources"`
	Mapping   models.ColumnMapping `json:"mapping,omitempty"`
	NotAfter  *time.Time           `json:"not_after,omitempty"` // Latest time to process job (nil = no expiration)
	CreatedAt time.Time            `json:"created_at"`
}

// NewImportJob creates an import job for batchID that expires after DefaultJobTTL
func NewImportJob(userID, batchID uuid.UUID, sources []models.Source, mapping models.ColumnMapping) *Job {
	now := time.Now()
	notAfter := now.Add(DefaultJobTTL)
	return &Job{
		ID:        uuid.New(),
		Type:      JobTypeImportBatch,
		UserID:    userID,
		BatchID:   batchID,
		Sources:   sources,
		Mapping:   mapping,
		NotAfter:  &notAfter,
		CreatedAt: now,
	}
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// Validate checks the fields every job type needs
func (j *Job) Validate() error {
	if j.Type != JobTypeImportBatch {
		return fmt.Errorf("unknown job type: %s", j.Type)
	}
	if j.UserID == uuid.Nil {
		return fmt.Errorf("job %s has no user", j.ID)
	}
	if j.BatchID == uuid.Nil {
		return fmt.Errorf("job %s has no batch id", j.ID)
	}
	return nil
}
