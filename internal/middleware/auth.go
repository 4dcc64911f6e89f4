package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	logpkg "github.com/benvon/time-import/internal/logger"
	"github.com/benvon/time-import/internal/models"
	"github.com/benvon/time-import/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DevUserHeader carries the caller's user id when no identity provider is configured
const DevUserHeader = "X-User-ID"

// TokenVerifier validates a bearer token and returns the caller it identifies
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Principal, error)
}

// Auth creates authentication middleware that validates bearer tokens
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			principal, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("error", logpkg.SanitizeError(err)),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				)
				respondError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithPrincipal(r.Context(), principal)))
		})
	}
}

// DevAuth trusts the X-User-ID header. Only for local development without an identity provider.
func DevAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(DevUserHeader))
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "Missing "+DevUserHeader+" header")
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				respondError(w, http.StatusUnauthorized, "Invalid "+DevUserHeader+" header")
				return
			}
			principal := &models.Principal{UserID: id, Subject: id.String()}
			next.ServeHTTP(w, r.WithContext(request.WithPrincipal(r.Context(), principal)))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}

	_ = json.NewEncoder(w).Encode(response)
}
