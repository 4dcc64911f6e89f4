package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/benvon/time-import/internal/database"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/pipeline"
	"github.com/benvon/time-import/internal/queue"
	"github.com/benvon/time-import/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type mockRunner struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	err  error
}

func (m *mockRunner) Run(ctx context.Context, req pipeline.Request) (*models.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return nil, m.err
	}
	return &models.Batch{ID: uuid.New(), UserID: req.UserID, Sources: req.Sources, Status: models.BatchStatusDraft}, nil
}

type mockImportStore struct {
	mu      sync.Mutex
	queued  []uuid.UUID
	failed  map[uuid.UUID]string
	saved   []*models.Batch
	records map[uuid.UUID]*models.ImportRecord
	saveErr error
	getErr  error
}

func (m *mockImportStore) CreateQueued(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, id)
	return nil
}

func (m *mockImportStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed == nil {
		m.failed = map[uuid.UUID]string{}
	}
	m.failed[id] = reason
	return nil
}

func (m *mockImportStore) SaveBatch(ctx context.Context, batch *models.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, batch)
	return nil
}

func (m *mockImportStore) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ImportRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	record, ok := m.records[id]
	if !ok || record.UserID != userID {
		return nil, database.ErrImportNotFound
	}
	return record, nil
}

type mockEnqueuer struct {
	jobs []*queue.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newImportRouter(h *ImportHandler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api/v1/imports").Subrouter())
	return r
}

func asUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(request.WithPrincipal(req.Context(), &models.Principal{UserID: userID}))
}

func jsonImport(t *testing.T, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	msg, _ := body["message"].(string)
	return msg
}

func TestCreateImport_Sync(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	store := &mockImportStore{}
	router := newImportRouter(NewImportHandler(runner, store, nil, zap.NewNop()))
	userID := uuid.New()

	req := jsonImport(t, "/api/v1/imports", CreateImportRequest{
		Sources: []SourceUpload{
			{Filename: "hours.csv", Content: "Datum;Dauer;Tätigkeit\n15.01.2024;2h;Support\n"},
			{Filename: "scan.png", Content: base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nfake")), Encoding: "base64"},
		},
		Text:    "2024-01-16 Review 30min",
		Mapping: map[string]string{"date": "Datum", "duration": " Dauer "},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, asUser(req, userID))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(runner.reqs) != 1 {
		t.Fatalf("Expected one pipeline run, got %d", len(runner.reqs))
	}
	run := runner.reqs[0]
	if run.UserID != userID {
		t.Errorf("Expected run for %s, got %s", userID, run.UserID)
	}
	wantTypes := []models.SourceType{models.SourceTypeDelimited, models.SourceTypeImage, models.SourceTypeFreeText}
	if len(run.Sources) != len(wantTypes) {
		t.Fatalf("Expected %d sources, got %d", len(wantTypes), len(run.Sources))
	}
	for i, want := range wantTypes {
		if run.Sources[i].Type != want {
			t.Errorf("source %d type = %s, want %s", i, run.Sources[i].Type, want)
		}
	}
	if run.Mapping[models.FieldDate] != "Datum" || run.Mapping[models.FieldDuration] != "Dauer" {
		t.Errorf("Expected trimmed mapping, got %v", run.Mapping)
	}
	if len(store.saved) != 1 {
		t.Fatalf("Expected batch to be saved, got %d", len(store.saved))
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/imports/"+store.saved[0].ID.String() {
		t.Errorf("Location = %q", loc)
	}
}

func TestCreateImport_Multipart(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	store := &mockImportStore{}
	router := newImportRouter(NewImportHandler(runner, store, nil, zap.NewNop()))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "../../etc/export.csv")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("date,start_time,end_time,duration_minutes,category,note\n2024-01-15,09:00,10:00,60,Dev,Work\n"))
	_ = mw.WriteField("mapping", `{"note":"Notiz"}`)
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/api/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, asUser(req, uuid.New()))

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	src := runner.reqs[0].Sources[0]
	if src.Filename != "export.csv" {
		t.Errorf("Expected sanitized filename export.csv, got %q", src.Filename)
	}
	if src.Type != models.SourceTypeExport {
		t.Errorf("Expected structured export, got %s", src.Type)
	}
	if runner.reqs[0].Mapping[models.FieldNote] != "Notiz" {
		t.Errorf("Expected mapping from form, got %v", runner.reqs[0].Mapping)
	}
}

func TestCreateImport_Rejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       any
		query      string
		wantStatus int
		wantMsg    string
	}{
		{"empty", CreateImportRequest{}, "", http.StatusBadRequest, "at least one file or text"},
		{"whitespace text", CreateImportRequest{Text: "   "}, "", http.StatusBadRequest, "at least one file or text"},
		{"unknown mapping field", CreateImportRequest{Text: "x", Mapping: map[string]string{"project": "P"}}, "", http.StatusBadRequest, "unknown mapping field"},
		{"bad base64", CreateImportRequest{Sources: []SourceUpload{{Filename: "a.png", Content: "!!", Encoding: "base64"}}}, "", http.StatusBadRequest, "not valid base64"},
		{"unknown encoding", CreateImportRequest{Sources: []SourceUpload{{Filename: "a.csv", Content: "x", Encoding: "rot13"}}}, "", http.StatusBadRequest, "content_encoding"},
		{"missing filename", CreateImportRequest{Sources: []SourceUpload{{Content: "x"}}}, "", http.StatusBadRequest, "required"},
		{"bad async flag", CreateImportRequest{Text: "x"}, "?async=maybe", http.StatusBadRequest, "async must be a boolean"},
		{"malformed json", "{", "", http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &mockRunner{}
			router := newImportRouter(NewImportHandler(runner, &mockImportStore{}, nil, zap.NewNop()))

			var req *http.Request
			if raw, ok := tt.body.(string); ok {
				req = httptest.NewRequest("POST", "/api/v1/imports"+tt.query, strings.NewReader(raw))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = jsonImport(t, "/api/v1/imports"+tt.query, tt.body)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, asUser(req, uuid.New()))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if msg := errorMessage(t, w); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %q", tt.wantMsg, msg)
			}
			if len(runner.reqs) != 0 {
				t.Error("Expected pipeline not to run")
			}
		})
	}
}

func TestCreateImport_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		runErr     error
		saveErr    error
		principal  bool
		wantStatus int
	}{
		{"no principal", nil, nil, false, http.StatusUnauthorized},
		{"pipeline error", errors.New("boom"), nil, true, http.StatusInternalServerError},
		{"save error", nil, errors.New("db down"), true, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newImportRouter(NewImportHandler(&mockRunner{err: tt.runErr}, &mockImportStore{saveErr: tt.saveErr}, nil, zap.NewNop()))
			req := jsonImport(t, "/api/v1/imports", CreateImportRequest{Text: "2024-01-15 Support 1h"})
			if tt.principal {
				req = asUser(req, uuid.New())
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCreateImport_Async(t *testing.T) {
	t.Parallel()

	runner := &mockRunner{}
	store := &mockImportStore{}
	jobs := &mockEnqueuer{}
	router := newImportRouter(NewImportHandler(runner, store, jobs, zap.NewNop()))
	userID := uuid.New()

	req := jsonImport(t, "/api/v1/imports?async=true", CreateImportRequest{
		Text:    "2024-01-15 Support 1h",
		Mapping: map[string]string{"category": "Projekt"},
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, asUser(req, userID))

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(runner.reqs) != 0 {
		t.Error("Expected no synchronous pipeline run")
	}
	if len(store.queued) != 1 || len(jobs.jobs) != 1 {
		t.Fatalf("Expected one queued import and one job, got %d and %d", len(store.queued), len(jobs.jobs))
	}
	job := jobs.jobs[0]
	if job.BatchID != store.queued[0] || job.UserID != userID {
		t.Errorf("job = %+v, queued = %s", job, store.queued[0])
	}
	if len(job.Sources) != 1 || job.Mapping[models.FieldCategory] != "Projekt" {
		t.Errorf("Expected sources and mapping on the job, got %+v", job)
	}

	var body struct {
		Data QueuedImportResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Data.ID != job.BatchID || body.Data.State != models.ImportStateQueued {
		t.Errorf("Expected queued response for %s, got %+v", job.BatchID, body.Data)
	}
}

func TestCreateImport_AsyncUnavailable(t *testing.T) {
	t.Parallel()

	t.Run("no queue", func(t *testing.T) {
		t.Parallel()
		store := &mockImportStore{}
		router := newImportRouter(NewImportHandler(&mockRunner{}, store, nil, zap.NewNop()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, asUser(jsonImport(t, "/api/v1/imports?async=1", CreateImportRequest{Text: "x"}), uuid.New()))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
		if len(store.queued) != 0 {
			t.Error("Expected nothing queued")
		}
	})

	t.Run("enqueue fails", func(t *testing.T) {
		t.Parallel()
		store := &mockImportStore{}
		router := newImportRouter(NewImportHandler(&mockRunner{}, store, &mockEnqueuer{err: errors.New("channel closed")}, zap.NewNop()))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, asUser(jsonImport(t, "/api/v1/imports?async=true", CreateImportRequest{Text: "x"}), uuid.New()))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
		if len(store.queued) != 1 || store.failed[store.queued[0]] == "" {
			t.Error("Expected queued import to be marked failed")
		}
	})
}

func TestGetImport(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	id := uuid.New()
	record := &models.ImportRecord{
		ID:     id,
		UserID: owner,
		State:  models.ImportStateReady,
		Batch:  &models.Batch{ID: id, UserID: owner, Status: models.BatchStatusDraft},
	}

	tests := []struct {
		name       string
		path       string
		user       uuid.UUID
		getErr     error
		wantStatus int
	}{
		{"owner", "/api/v1/imports/" + id.String(), owner, nil, http.StatusOK},
		{"other user", "/api/v1/imports/" + id.String(), uuid.New(), nil, http.StatusNotFound},
		{"unknown id", "/api/v1/imports/" + uuid.New().String(), owner, nil, http.StatusNotFound},
		{"invalid id", "/api/v1/imports/not-a-uuid", owner, nil, http.StatusBadRequest},
		{"store error", "/api/v1/imports/" + id.String(), owner, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockImportStore{records: map[uuid.UUID]*models.ImportRecord{id: record}, getErr: tt.getErr}
			router := newImportRouter(NewImportHandler(&mockRunner{}, store, nil, zap.NewNop()))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, asUser(httptest.NewRequest("GET", tt.path, nil), tt.user))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Data models.ImportRecord `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Data.State != models.ImportStateReady || body.Data.Batch == nil || body.Data.Batch.ID != id {
				t.Errorf("unexpected record %+v", body.Data)
			}
		})
	}
}
