package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout leaves room for a synchronous import that calls the model
	DefaultRequestTimeout = 2 * time.Minute
)

const timeoutBody = `{"success":false,"error":"Request Timeout"}`

// Timeout bounds request handling. The handler's context is cancelled when the deadline passes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
