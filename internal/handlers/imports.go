package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/time-import/internal/database"
	logpkg "github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/queue"
	"github.com/benvon/time-import/internal/request"
	"github.com/benvon/time-import/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	// MaxSourcesPerImport caps the number of files and text blocks in one request
	MaxSourcesPerImport = 20
	// MaxPastedTextLength is the maximum length of the pasted text field
	MaxPastedTextLength = 200000

	multipartMemory = 8 << 20
)

// PipelineRunner builds a draft batch from sources
type PipelineRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*models.Batch, error)
}

// ImportStore persists import requests and their batches
type ImportStore interface {
	CreateQueued(ctx context.Context, id, userID uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	SaveBatch(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ImportRecord, error)
}

// JobEnqueuer hands import jobs to the worker
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// ImportHandler handles import requests
type ImportHandler struct {
	runner PipelineRunner
	store  ImportStore
	jobs   JobEnqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewImportHandler creates a new import handler. jobs may be nil, which disables async imports.
func NewImportHandler(runner PipelineRunner, store ImportStore, jobs JobEnqueuer, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		runner: runner,
		store:  store,
		jobs:   jobs,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRoutes registers import routes on the given router
// The router should already have the /imports prefix
func (h *ImportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateImport).Methods("POST")
	r.HandleFunc("/{id}", h.GetImport).Methods("GET")
}

// SourceUpload is one file sent inline in a JSON import request
type SourceUpload struct {
	Filename string `json:"filename" validate:"required,max=512"`
	Content  string `json:"content" validate:"required"`
	// Encoding is "text" (default) or "base64"
	Encoding string `json:"encoding,omitempty" validate:"omitempty,content_encoding"`
}

// CreateImportRequest is the JSON body of POST /imports
type CreateImportRequest struct {
	Sources []SourceUpload    `json:"sources" validate:"max=20,dive"`
	Text    string            `json:"text,omitempty" validate:"max=200000"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

// QueuedImportResponse is returned for async imports
type QueuedImportResponse struct {
	ID    uuid.UUID          `json:"id"`
	State models.ImportState `json:"state"`
}

// CreateImport runs an import for the authenticated user. With ?async=true the sources
// are queued for the worker and 202 is returned; otherwise the draft batch is built and
// stored before responding.
func (h *ImportHandler) CreateImport(w http.ResponseWriter, r *http.Request) {
	principal := request.PrincipalFromContext(r)
	if principal == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	async := false
	if raw := r.URL.Query().Get("async"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "async must be a boolean")
			return
		}
		async = parsed
	}

	sources, mapping, err := h.readSources(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Upload exceeds the size limit")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if async {
		h.enqueueImport(w, r, principal.UserID, sources, mapping)
		return
	}

	batch, err := h.runner.Run(r.Context(), pipeline.Request{
		UserID:  principal.UserID,
		Sources: sources,
		Mapping: mapping,
	})
	if err != nil {
		h.logger.Error("import_run_failed",
			zap.String("user_id", principal.UserID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build import")
		return
	}

	if err := h.store.SaveBatch(r.Context(), batch); err != nil {
		h.logger.Error("import_save_failed",
			zap.String("batch_id", batch.ID.String()),
			zap.Error(err),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save import")
		return
	}

	w.Header().Set("Location", "/api/v1/imports/"+batch.ID.String())
	respondJSON(w, http.StatusCreated, batch)
}

func (h *ImportHandler) enqueueImport(w http.ResponseWriter, r *http.Request, userID uuid.UUID, sources []models.Source, mapping models.ColumnMapping) {
	if h.jobs == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Async imports are not available")
		return
	}

	ctx := r.Context()
	batchID := uuid.New()
	if err := h.store.CreateQueued(ctx, batchID, userID); err != nil {
		h.logger.Error("import_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create import")
		return
	}

	job := queue.NewImportJob(userID, batchID, sources, mapping)
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.logger.Error("import_enqueue_failed",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
		if markErr := h.store.MarkFailed(ctx, batchID, "failed to enqueue import"); markErr != nil {
			h.logger.Warn("import_mark_failed_error", zap.Error(markErr))
		}
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue import")
		return
	}

	h.logger.Info("import_job_enqueued",
		zap.String("batch_id", batchID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("sources", len(sources)),
	)
	w.Header().Set("Location", "/api/v1/imports/"+batchID.String())
	respondJSON(w, http.StatusAccepted, QueuedImportResponse{ID: batchID, State: models.ImportStateQueued})
}

// GetImport returns an import and, once ready, its draft batch
func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	principal := request.PrincipalFromContext(r)
	if principal == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid import ID")
		return
	}

	record, err := h.store.GetByID(r.Context(), id, principal.UserID)
	if errors.Is(err, database.ErrImportNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Import not found")
		return
	}
	if err != nil {
		h.logger.Error("import_get_failed", zap.String("import_id", id.String()), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get import")
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// readSources builds sources from a multipart upload or a JSON body
func (h *ImportHandler) readSources(r *http.Request) ([]models.Source, models.ColumnMapping, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return h.readMultipart(r)
	}
	return h.readJSON(r)
}

func (h *ImportHandler) readJSON(r *http.Request) ([]models.Source, models.ColumnMapping, error) {
	var req CreateImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("invalid request body")
	}
	if err := validation.Validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("invalid request: %s", validation.FormatError(err))
	}

	mapping, err := parseMapping(req.Mapping)
	if err != nil {
		return nil, nil, err
	}

	now := h.now()
	sources := make([]models.Source, 0, len(req.Sources)+1)
	for _, up := range req.Sources {
		data := []byte(up.Content)
		if models.ContentEncoding(up.Encoding) == models.ContentEncodingBase64 {
			data, err = base64.StdEncoding.DecodeString(up.Content)
			if err != nil {
				return nil, nil, fmt.Errorf("content of %s is not valid base64", logpkg.SanitizeFilename(up.Filename))
			}
		}
		sources = append(sources, models.NewSource(logpkg.SanitizeFilename(up.Filename), data, now))
	}
	return finishSources(sources, req.Text, mapping, now)
}

func (h *ImportHandler) readMultipart(r *http.Request) ([]models.Source, models.ColumnMapping, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("invalid multipart form")
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	var rawMapping map[string]string
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &rawMapping); err != nil {
			return nil, nil, fmt.Errorf("mapping must be a JSON object")
		}
	}
	mapping, err := parseMapping(rawMapping)
	if err != nil {
		return nil, nil, err
	}

	files := r.MultipartForm.File["files"]
	if len(files) > MaxSourcesPerImport {
		return nil, nil, fmt.Errorf("at most %d sources per import", MaxSourcesPerImport)
	}

	now := h.now()
	sources := make([]models.Source, 0, len(files)+1)
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, models.NewSource(logpkg.SanitizeFilename(fh.Filename), data, now))
	}

	text := r.FormValue("text")
	if len(text) > MaxPastedTextLength {
		return nil, nil, fmt.Errorf("text exceeds %d characters", MaxPastedTextLength)
	}
	return finishSources(sources, text, mapping, now)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s", logpkg.SanitizeFilename(fh.Filename))
	}
	defer func() {
		_ = f.Close()
	}()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s", logpkg.SanitizeFilename(fh.Filename))
	}
	return data, nil
}

// finishSources appends pasted text and checks the request is not empty
func finishSources(sources []models.Source, text string, mapping models.ColumnMapping, now time.Time) ([]models.Source, models.ColumnMapping, error) {
	if strings.TrimSpace(text) != "" {
		sources = append(sources, models.NewTextSource("", text, now))
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("at least one file or text is required")
	}
	if len(sources) > MaxSourcesPerImport {
		return nil, nil, fmt.Errorf("at most %d sources per import", MaxSourcesPerImport)
	}
	for _, src := range sources {
		if err := validation.ValidateSource(src); err != nil {
			return nil, nil, err
		}
	}
	return sources, mapping, nil
}

func parseMapping(raw map[string]string) (models.ColumnMapping, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	mapping := make(models.ColumnMapping, len(raw))
	for field, header := range raw {
		f := models.Field(field)
		if !models.IsValidField(f) {
			return nil, fmt.Errorf("unknown mapping field %q", validation.SanitizeText(field))
		}
		mapping[f] = strings.TrimSpace(header)
	}
	return mapping, nil
}
