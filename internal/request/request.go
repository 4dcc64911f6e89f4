package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/time-import/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// PrincipalContextKey returns the context key used for the principal. Exposed for tests that inject other values.
func PrincipalContextKey() contextKey { return principalContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithPrincipal returns a context with the authenticated caller attached.
func WithPrincipal(ctx context.Context, p *models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the caller from the request context, or nil if missing or wrong type.
func PrincipalFromContext(r *http.Request) *models.Principal {
	p, _ := r.Context().Value(principalContextKey).(*models.Principal)
	return p
}

// RateLimitKey identifies the caller for rate limiting: the user id when authenticated, else the client IP.
func RateLimitKey(r *http.Request) string {
	if p := PrincipalFromContext(r); p != nil {
		return "user:" + p.UserID.String()
	}
	return "ip:" + ClientIP(r)
}
