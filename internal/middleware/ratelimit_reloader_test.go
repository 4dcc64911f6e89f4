package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/request"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

type mockRatelimitSource struct {
	mu     sync.Mutex
	stored map[string]string
	getErr error
	sets   []*models.RatelimitConfig
}

func (m *mockRatelimitSource) Get(ctx context.Context, key string) (*models.RatelimitConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	rate, ok := m.stored[key]
	if !ok {
		return nil, nil
	}
	return &models.RatelimitConfig{ConfigKey: key, Rate: rate}, nil
}

func (m *mockRatelimitSource) Set(ctx context.Context, c *models.RatelimitConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, c)
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	m.stored[c.ConfigKey] = c.Rate
	return nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(h http.Handler, ip string) int {
	req := httptest.NewRequest("GET", "/api/v1/imports/x", nil)
	req.RemoteAddr = ip
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitReloader_SeedsDefault(t *testing.T) {
	t.Parallel()

	repo := &mockRatelimitSource{}
	r := NewRateLimitReloader(memory.NewStore(), repo, "2-M", zap.NewNop(), 0)
	h := r.Middleware()(okHandler())

	if len(repo.sets) != 1 || repo.sets[0].ConfigKey != models.RatelimitKeyHTTP || repo.sets[0].Rate != "2-M" {
		t.Fatalf("Expected default rate to be seeded under http key, got %+v", repo.sets)
	}
	if r.Rate() != "2-M" {
		t.Errorf("Rate() = %q, want 2-M", r.Rate())
	}

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		if got := hit(h, "10.0.0.1:1"); got != want {
			t.Errorf("request %d: status %d, want %d", i, got, want)
		}
	}
	if got := hit(h, "10.0.0.2:1"); got != http.StatusOK {
		t.Errorf("other client: status %d, want 200", got)
	}
}

func TestRateLimitReloader_StoredRateAndReload(t *testing.T) {
	t.Parallel()

	repo := &mockRatelimitSource{stored: map[string]string{models.RatelimitKeyHTTP: "1-M"}}
	r := NewRateLimitReloader(memory.NewStore(), repo, "100-M", zap.NewNop(), 0)
	h := r.Middleware()(okHandler())

	if r.Rate() != "1-M" {
		t.Fatalf("Rate() = %q, want stored 1-M", r.Rate())
	}
	if len(repo.sets) != 0 {
		t.Error("Expected no seeding when a rate is stored")
	}
	_ = hit(h, "10.0.0.1:1")
	if got := hit(h, "10.0.0.1:1"); got != http.StatusTooManyRequests {
		t.Errorf("Expected 429 at stored rate, got %d", got)
	}

	repo.mu.Lock()
	repo.stored[models.RatelimitKeyHTTP] = "bogus"
	repo.mu.Unlock()
	r.load(context.Background())
	if r.Rate() != "100-M" {
		t.Errorf("Expected fallback to default on invalid stored rate, got %q", r.Rate())
	}
}

func TestRateLimitReloader_RepoErrorUsesDefault(t *testing.T) {
	t.Parallel()

	repo := &mockRatelimitSource{getErr: errors.New("db down")}
	r := NewRateLimitReloader(memory.NewStore(), repo, "", zap.NewNop(), 0)
	_ = r.Middleware()(okHandler())

	if r.Rate() != defaultRatelimitRate {
		t.Errorf("Rate() = %q, want %q", r.Rate(), defaultRatelimitRate)
	}
	if len(repo.sets) != 0 {
		t.Error("Expected no seeding when the repository errors")
	}
}

func TestRateLimitReloader_KeysByUser(t *testing.T) {
	t.Parallel()

	repo := &mockRatelimitSource{stored: map[string]string{models.RatelimitKeyHTTP: "1-M"}}
	h := NewRateLimitReloader(memory.NewStore(), repo, "", zap.NewNop(), 0).Middleware()(okHandler())

	send := func(user uuid.UUID) int {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.9:1"
		req = req.WithContext(request.WithPrincipal(req.Context(), &models.Principal{UserID: user}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	alice, bob := uuid.New(), uuid.New()
	if send(alice) != http.StatusOK || send(bob) != http.StatusOK {
		t.Error("Expected first request per user to pass from a shared IP")
	}
	if send(alice) != http.StatusTooManyRequests {
		t.Error("Expected second request for the same user to be limited")
	}
}
