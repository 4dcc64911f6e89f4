package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/queue"
	"github.com/google/uuid"
)

type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

func (m *mockMessage) Redelivered() bool {
	return false
}

type mockRunner struct {
	runFunc func(ctx context.Context, req pipeline.Request) (*models.Batch, error)
	calls   []pipeline.Request
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (*models.Batch, error) {
	m.calls = append(m.calls, req)
	return m.runFunc(ctx, req)
}

type mockBatchStore struct {
	mu         sync.Mutex
	processing []uuid.UUID
	failed     map[uuid.UUID]string
	saved      []*models.Batch
	processErr error
	saveErr    error
}

func (m *mockBatchStore) MarkProcessing(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processing = append(m.processing, id)
	return m.processErr
}

func (m *mockBatchStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed == nil {
		m.failed = make(map[uuid.UUID]string)
	}
	m.failed[id] = reason
	return nil
}

func (m *mockBatchStore) SaveBatch(_ context.Context, batch *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, batch)
	return nil
}

func draftFor(req pipeline.Request) *models.Batch {
	return &models.Batch{ID: req.BatchID, UserID: req.UserID, Status: models.BatchStatusDraft}
}

func TestImportProcessor_ProcessJob(t *testing.T) {
	t.Parallel()

	runErr := errors.New("boom")

	tests := []struct {
		name       string
		expired    bool
		runErr     error
		processErr error
		saveErr    error
		wantErr    bool
		wantAck    bool
		wantSaved  bool
		wantFailed bool
		wantRun    bool
	}{
		{
			name:      "success",
			wantAck:   true,
			wantSaved: true,
			wantRun:   true,
		},
		{
			name:       "queued row missing still saves",
			processErr: database.ErrImportNotFound,
			wantAck:    true,
			wantSaved:  true,
			wantRun:    true,
		},
		{
			name:       "expired job is acked and marked failed",
			expired:    true,
			wantAck:    true,
			wantFailed: true,
		},
		{
			name:       "pipeline error dead-letters",
			runErr:     runErr,
			wantErr:    true,
			wantFailed: true,
			wantRun:    true,
		},
		{
			name:       "save error dead-letters",
			saveErr:    errors.New("database down"),
			wantErr:    true,
			wantFailed: true,
			wantRun:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := queue.NewImportJob(uuid.New(), uuid.New(), []models.Source{
				models.NewTextSource("", "2024-01-15 Support 1h", time.Now()),
			}, nil)
			if tt.expired {
				past := time.Now().Add(-time.Minute)
				job.NotAfter = &past
			}
			msg := &mockMessage{job: job}
			runner := &mockRunner{runFunc: func(_ context.Context, req pipeline.Request) (*models.Batch, error) {
				if tt.runErr != nil {
					return nil, tt.runErr
				}
				return draftFor(req), nil
			}}
			store := &mockBatchStore{processErr: tt.processErr, saveErr: tt.saveErr}

			err := NewImportProcessor(runner, store, nil).ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.runErr != nil && !errors.Is(err, tt.runErr) {
				t.Errorf("error should wrap the pipeline error, got %v", err)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAck)
			}
			if !tt.wantAck && (!msg.nacked || msg.requeue) {
				t.Errorf("failed job should be nacked without requeue (nacked=%v requeue=%v)", msg.nacked, msg.requeue)
			}
			if got := len(store.saved) == 1; got != tt.wantSaved {
				t.Errorf("saved = %v, want %v", got, tt.wantSaved)
			}
			if tt.wantSaved && store.saved[0].ID != job.BatchID {
				t.Errorf("saved batch id = %s, want %s", store.saved[0].ID, job.BatchID)
			}
			if _, got := store.failed[job.BatchID]; got != tt.wantFailed {
				t.Errorf("marked failed = %v, want %v", got, tt.wantFailed)
			}
			if got := len(runner.calls) == 1; got != tt.wantRun {
				t.Errorf("pipeline ran = %v, want %v", got, tt.wantRun)
			}
			if tt.wantRun && (runner.calls[0].UserID != job.UserID || runner.calls[0].BatchID != job.BatchID) {
				t.Errorf("pipeline request = %+v", runner.calls[0])
			}
		})
	}
}
