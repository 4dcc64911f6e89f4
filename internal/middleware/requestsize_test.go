package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		body          string
		hideLength    bool
		wantStatus    int
		wantReadError bool
	}{
		{"under limit", "short", false, http.StatusOK, false},
		{"declared over limit", strings.Repeat("x", 32), false, http.StatusRequestEntityTooLarge, false},
		{"streamed over limit", strings.Repeat("x", 32), true, http.StatusOK, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var readErr error
			handler := MaxRequestSize(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("POST", "/api/v1/imports", strings.NewReader(tt.body))
			if tt.hideLength {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var maxErr *http.MaxBytesError
			if got := errors.As(readErr, &maxErr); got != tt.wantReadError {
				t.Errorf("Expected MaxBytesError %v, got %v", tt.wantReadError, readErr)
			}
		})
	}
}
